// Package terminology maps injury categories to coded clinical conditions.
// Codes are SNOMED CT; the catalog is static and the pick within a category
// is driven by the caller's RNG for reproducibility.
package terminology

import (
	"math/rand"

	"github.com/exermed/exermed/internal/sim"
)

const snomedSystem = "http://snomed.info/sct"

// Provider implements sim.ConditionProvider from a static SNOMED catalog.
type Provider struct {
	catalog map[sim.InjuryCategory][]sim.Code
}

// NewProvider returns a Provider over the built-in condition catalog.
func NewProvider() *Provider {
	return &Provider{catalog: builtinCatalog}
}

// Condition draws a coded condition for the injury category. Triage does not
// select the code itself; severity is carried on the record, not the coding.
func (p *Provider) Condition(rng *rand.Rand, category sim.InjuryCategory, _ sim.TriageCategory) sim.Code {
	codes, ok := p.catalog[category]
	if !ok || len(codes) == 0 {
		return sim.Code{System: snomedSystem, Code: "417163006", Display: "Traumatic or non-traumatic injury"}
	}
	return codes[rng.Intn(len(codes))]
}

// Codes lists the catalog entries for one category. Callers must not modify
// the returned slice.
func (p *Provider) Codes(category sim.InjuryCategory) []sim.Code {
	return p.catalog[category]
}

var builtinCatalog = map[sim.InjuryCategory][]sim.Code{
	sim.CategoryBattleTrauma: {
		{System: snomedSystem, Code: "262574004", Display: "Bullet wound"},
		{System: snomedSystem, Code: "125689001", Display: "Shrapnel injury"},
		{System: snomedSystem, Code: "443011000124104", Display: "Blast injury of lung"},
		{System: snomedSystem, Code: "125666000", Display: "Burn"},
		{System: snomedSystem, Code: "210109006", Display: "Traumatic amputation of lower limb"},
		{System: snomedSystem, Code: "127295002", Display: "Traumatic brain injury"},
		{System: snomedSystem, Code: "125605004", Display: "Fracture of bone"},
		{System: snomedSystem, Code: "50960005", Display: "Hemorrhage"},
	},
	sim.CategoryNonBattleInjury: {
		{System: snomedSystem, Code: "125605004", Display: "Fracture of bone"},
		{System: snomedSystem, Code: "128045006", Display: "Crush injury"},
		{System: snomedSystem, Code: "44301001", Display: "Sprain of ankle"},
		{System: snomedSystem, Code: "370977006", Display: "Heat exhaustion"},
		{System: snomedSystem, Code: "37782003", Display: "Hypothermia"},
		{System: snomedSystem, Code: "417746004", Display: "Traumatic injury during physical training"},
	},
	sim.CategoryDisease: {
		{System: snomedSystem, Code: "25374005", Display: "Gastroenteritis"},
		{System: snomedSystem, Code: "233604007", Display: "Pneumonia"},
		{System: snomedSystem, Code: "6142004", Display: "Influenza"},
		{System: snomedSystem, Code: "38907003", Display: "Varicella"},
		{System: snomedSystem, Code: "128139000", Display: "Inflammatory disorder"},
		{System: snomedSystem, Code: "444814009", Display: "Viral upper respiratory infection"},
	},
}
