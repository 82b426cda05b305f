// Package demographics generates reproducible display demographics for
// synthetic patients. All sampling is driven by the caller's RNG so a fixed
// seed always yields the same cohort.
package demographics

import (
	"fmt"
	"math/rand"
	"sort"
	"time"

	"github.com/exermed/exermed/internal/sim"
)

// nameTable holds given/family name pools for one nationality.
type nameTable struct {
	male   []string
	female []string
	family []string
}

// Provider implements sim.DemographicsProvider from static name tables.
type Provider struct {
	tables   map[string]nameTable
	fallback nameTable

	// Service-age window for generated birth dates, in years.
	minAge int
	maxAge int

	// Anchor for birth-date arithmetic so generated records do not drift
	// between patients within one run.
	now time.Time
}

// NewProvider returns a Provider covering the built-in nationality tables.
// Unknown nationality codes fall back to the NATO roster.
func NewProvider() *Provider {
	return &Provider{
		tables:   builtinTables,
		fallback: builtinTables["USA"],
		minAge:   18,
		maxAge:   49,
		now:      time.Now().UTC(),
	}
}

// Identity draws a name, gender and birth date for the given nationality.
func (p *Provider) Identity(rng *rand.Rand, nationality string) sim.Identity {
	t, ok := p.tables[nationality]
	if !ok {
		t = p.fallback
	}

	id := sim.Identity{}
	// Combat cohort skew; roughly one in eight records is female.
	if rng.Float64() < 0.125 {
		id.Gender = "female"
		id.GivenName = t.female[rng.Intn(len(t.female))]
	} else {
		id.Gender = "male"
		id.GivenName = t.male[rng.Intn(len(t.male))]
	}
	id.FamilyName = t.family[rng.Intn(len(t.family))]
	id.BirthDate = p.birthDate(rng)
	return id
}

func (p *Provider) birthDate(rng *rand.Rand) string {
	ageDays := (p.minAge*365 + rng.Intn((p.maxAge-p.minAge)*365))
	bd := p.now.AddDate(0, 0, -ageDays)
	return fmt.Sprintf("%04d-%02d-%02d", bd.Year(), bd.Month(), bd.Day())
}

var builtinTables = map[string]nameTable{
	"USA": {
		male:   []string{"James", "Michael", "Robert", "John", "David", "William", "Christopher", "Daniel", "Matthew", "Anthony", "Joshua", "Andrew", "Ryan", "Brandon", "Tyler"},
		female: []string{"Emily", "Sarah", "Jessica", "Ashley", "Amanda", "Jennifer", "Stephanie", "Nicole", "Elizabeth", "Megan"},
		family: []string{"Smith", "Johnson", "Williams", "Brown", "Jones", "Garcia", "Miller", "Davis", "Rodriguez", "Martinez", "Anderson", "Taylor", "Thomas", "Moore", "Jackson"},
	},
	"GBR": {
		male:   []string{"Oliver", "George", "Harry", "Jack", "Charlie", "Thomas", "Oscar", "William", "James", "Henry"},
		female: []string{"Olivia", "Amelia", "Isla", "Emily", "Ava", "Grace", "Sophie", "Charlotte"},
		family: []string{"Smith", "Jones", "Taylor", "Brown", "Williams", "Wilson", "Evans", "Thomas", "Roberts", "Walker"},
	},
	"POL": {
		male:   []string{"Jakub", "Kacper", "Mateusz", "Szymon", "Filip", "Piotr", "Tomasz", "Marcin", "Pawel", "Krzysztof"},
		female: []string{"Zuzanna", "Julia", "Maja", "Aleksandra", "Natalia", "Wiktoria", "Anna", "Katarzyna"},
		family: []string{"Nowak", "Kowalski", "Wisniewski", "Wojcik", "Kowalczyk", "Kaminski", "Lewandowski", "Zielinski", "Szymanski", "Wozniak"},
	},
	"DEU": {
		male:   []string{"Lukas", "Leon", "Finn", "Jonas", "Paul", "Maximilian", "Felix", "Tobias", "Stefan", "Andreas"},
		female: []string{"Mia", "Emma", "Hannah", "Sofia", "Anna", "Lena", "Laura", "Katharina"},
		family: []string{"Mueller", "Schmidt", "Schneider", "Fischer", "Weber", "Meyer", "Wagner", "Becker", "Schulz", "Hoffmann"},
	},
	"EST": {
		male:   []string{"Rasmus", "Oliver", "Markus", "Kristjan", "Martin", "Siim", "Tanel", "Priit"},
		female: []string{"Laura", "Maria", "Liisa", "Kadri", "Triin", "Anneli"},
		family: []string{"Tamm", "Saar", "Sepp", "Maegi", "Kask", "Kukk", "Rebane", "Ilves", "Parn", "Koppel"},
	},
}

// Nationalities lists the codes with dedicated name tables, for validation
// and UI pick lists.
func (p *Provider) Nationalities() []string {
	out := make([]string, 0, len(p.tables))
	for code := range p.tables {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}
