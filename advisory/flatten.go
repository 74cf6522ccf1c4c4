package advisory

import (
	"fmt"
	"strings"

	"github.com/samber/lo"
)

const cveRecordURL = "https://www.cve.org/CVERecord?id=%s"

// View is the display-ready projection of an Advisory. Nested lists are
// flattened to scalar strings in source order; nothing here is persisted.
type View struct {
	Advisory

	ProductNames    string
	ResponseTexts   string
	VendorNames     string
	ResponseURIs    string
	DiscovererNames string
	CVELinks        string
	CVSSDisplay     string
}

// Flatten derives the display projection of a single advisory.
func Flatten(a Advisory) View {
	return View{
		Advisory: a,
		ProductNames: join(lo.FilterMap(a.Products, func(p Product, _ int) (string, bool) {
			return p.Name, p.Name != ""
		})),
		ResponseTexts: join(lo.FilterMap(a.Responses, func(r Response, _ int) (string, bool) {
			return r.Text, r.Text != ""
		})),
		VendorNames: join(lo.FilterMap(a.Responses, func(r Response, _ int) (string, bool) {
			if r.Vendor == nil {
				return "", false
			}
			return r.Vendor.Name, r.Vendor.Name != ""
		})),
		ResponseURIs: join(lo.FilterMap(a.Responses, func(r Response, _ int) (string, bool) {
			return r.URI, r.URI != ""
		})),
		DiscovererNames: join(a.Discoverers),
		CVELinks: join(lo.Map(a.CVEs, func(id string, _ int) string {
			return fmt.Sprintf("[%s]("+cveRecordURL+")", id, id)
		})),
		CVSSDisplay: strings.ReplaceAll(a.CVSSVector, "/", " "),
	}
}

func join(values []string) string {
	return strings.Join(values, ", ")
}
