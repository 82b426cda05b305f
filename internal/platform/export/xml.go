package export

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"fmt"
	"sort"

	"github.com/exermed/exermed/internal/platform/fhir"
)

// marshalBundleXML renders a Bundle in the FHIR XML style: primitives carried
// in value attributes, resources wrapped in elements named after their
// resourceType. Keys are emitted in sorted order so output is stable.
func marshalBundleXML(b *fhir.Bundle) ([]byte, error) {
	// Round-trip through JSON to get the same generic tree the JSON export
	// renders, entry resources included.
	raw, err := json.Marshal(b)
	if err != nil {
		return nil, fmt.Errorf("export: marshal bundle: %w", err)
	}
	var tree map[string]interface{}
	if err := json.Unmarshal(raw, &tree); err != nil {
		return nil, fmt.Errorf("export: rebuild bundle tree: %w", err)
	}

	var buf bytes.Buffer
	buf.WriteString(xml.Header)
	if err := writeResource(&buf, tree, 0); err != nil {
		return nil, err
	}
	buf.WriteByte('\n')
	return buf.Bytes(), nil
}

func writeResource(buf *bytes.Buffer, res map[string]interface{}, depth int) error {
	name, _ := res["resourceType"].(string)
	if name == "" {
		return fmt.Errorf("export: resource missing resourceType")
	}
	indent(buf, depth)
	if depth == 0 {
		fmt.Fprintf(buf, "<%s xmlns=\"http://hl7.org/fhir\">\n", name)
	} else {
		fmt.Fprintf(buf, "<%s>\n", name)
	}
	if err := writeFields(buf, res, depth+1); err != nil {
		return err
	}
	indent(buf, depth)
	fmt.Fprintf(buf, "</%s>\n", name)
	return nil
}

func writeFields(buf *bytes.Buffer, m map[string]interface{}, depth int) error {
	keys := make([]string, 0, len(m))
	for k := range m {
		if k == "resourceType" {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, k := range keys {
		if err := writeValue(buf, k, m[k], depth); err != nil {
			return err
		}
	}
	return nil
}

func writeValue(buf *bytes.Buffer, name string, v interface{}, depth int) error {
	switch val := v.(type) {
	case map[string]interface{}:
		// An embedded resource gets its own resource wrapper.
		if _, ok := val["resourceType"]; ok {
			indent(buf, depth)
			fmt.Fprintf(buf, "<%s>\n", name)
			if err := writeResource(buf, val, depth+1); err != nil {
				return err
			}
			indent(buf, depth)
			fmt.Fprintf(buf, "</%s>\n", name)
			return nil
		}
		indent(buf, depth)
		fmt.Fprintf(buf, "<%s>\n", name)
		if err := writeFields(buf, val, depth+1); err != nil {
			return err
		}
		indent(buf, depth)
		fmt.Fprintf(buf, "</%s>\n", name)
		return nil
	case []interface{}:
		for _, item := range val {
			if err := writeValue(buf, name, item, depth); err != nil {
				return err
			}
		}
		return nil
	case nil:
		return nil
	default:
		var text string
		switch prim := val.(type) {
		case string:
			text = prim
		case float64:
			text = trimFloat(prim)
		case bool:
			if prim {
				text = "true"
			} else {
				text = "false"
			}
		default:
			return fmt.Errorf("export: unsupported value %T for %s", v, name)
		}
		indent(buf, depth)
		var esc bytes.Buffer
		if err := xml.EscapeText(&esc, []byte(text)); err != nil {
			return err
		}
		fmt.Fprintf(buf, "<%s value=\"%s\"/>\n", name, esc.String())
		return nil
	}
}

func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%g", f)
}

func indent(buf *bytes.Buffer, depth int) {
	for i := 0; i < depth; i++ {
		buf.WriteString("  ")
	}
}
