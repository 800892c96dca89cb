package form

import (
	"fmt"
	"sort"
	"strings"
)

// Applicant carries free-text details for one borrower on the application.
type Applicant struct {
	Name              string `json:"name"`
	Role              string `json:"role,omitempty"`
	EmploymentHistory string `json:"employment_history,omitempty"`
	IncomeDetails     string `json:"income_details,omitempty"`
	AdditionalNotes   string `json:"additional_notes,omitempty"`
}

// notProvided is the placeholder the generation prompt expects for empty
// sections; the model is instructed never to invent missing figures.
const notProvided = "Not provided."

// DescribeApplicants renders the applicant list as a text block for the
// generation prompt.
func DescribeApplicants(applicants []Applicant) string {
	if len(applicants) == 0 {
		return notProvided
	}

	blocks := make([]string, 0, len(applicants))
	for _, a := range applicants {
		lines := []string{"Name: " + a.Name}
		if a.Role != "" {
			lines = append(lines, "Role: "+a.Role)
		}
		if a.EmploymentHistory != "" {
			lines = append(lines, "Employment: "+a.EmploymentHistory)
		}
		if a.IncomeDetails != "" {
			lines = append(lines, "Income: "+a.IncomeDetails)
		}
		if a.AdditionalNotes != "" {
			lines = append(lines, "Notes: "+a.AdditionalNotes)
		}
		blocks = append(blocks, strings.Join(lines, "\n"))
	}
	return strings.Join(blocks, "\n\n")
}

// Describe renders the record as readable bullet lines, skipping absent
// fields. List values holding sub-records are expanded one bullet per entry.
// Field names become labels by replacing underscores and title-casing; domain
// schemas may carry any field, so no fixed label table exists here.
func (r Record) Describe() string {
	if len(r) == 0 {
		return notProvided
	}

	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var lines []string
	for _, key := range keys {
		if !r.Present(key) {
			continue
		}
		label := fieldLabel(key)

		switch v := r[key].(type) {
		case []any:
			lines = append(lines, describeList(label, v)...)
		case bool:
			lines = append(lines, fmt.Sprintf("- %s: %s", label, yesNo(v)))
		case string:
			lines = append(lines, fmt.Sprintf("- %s: %s", label, strings.TrimSpace(v)))
		case float64:
			lines = append(lines, fmt.Sprintf("- %s: %s", label, trimFloat(v)))
		default:
			lines = append(lines, fmt.Sprintf("- %s: %v", label, v))
		}
	}

	if len(lines) == 0 {
		return notProvided
	}
	return strings.Join(lines, "\n")
}

// describeList expands a repeater field. Sub-records become one bullet per
// entry with their own labelled parts; scalar lists join on commas.
func describeList(label string, items []any) []string {
	var lines []string

	allRecords := true
	for _, item := range items {
		if _, ok := item.(map[string]any); !ok {
			allRecords = false
			break
		}
	}

	if allRecords {
		for i, item := range items {
			sub := Record(item.(map[string]any))
			var parts []string
			subKeys := make([]string, 0, len(sub))
			for k := range sub {
				subKeys = append(subKeys, k)
			}
			sort.Strings(subKeys)
			for _, sk := range subKeys {
				if !sub.Present(sk) {
					continue
				}
				switch sv := sub[sk].(type) {
				case bool:
					parts = append(parts, fieldLabel(sk)+": "+yesNo(sv))
				case float64:
					parts = append(parts, fieldLabel(sk)+": "+trimFloat(sv))
				default:
					parts = append(parts, fmt.Sprintf("%s: %v", fieldLabel(sk), sv))
				}
			}
			if len(parts) > 0 {
				lines = append(lines, fmt.Sprintf("- %s [%d]: %s", label, i+1, strings.Join(parts, ", ")))
			}
		}
		return lines
	}

	var values []string
	for _, item := range items {
		switch v := item.(type) {
		case nil:
			continue
		case bool:
			values = append(values, yesNo(v))
		case string:
			if strings.TrimSpace(v) == "" {
				continue
			}
			values = append(values, strings.TrimSpace(v))
		case float64:
			values = append(values, trimFloat(v))
		default:
			values = append(values, fmt.Sprintf("%v", v))
		}
	}
	if len(values) == 0 {
		return nil
	}
	return []string{fmt.Sprintf("- %s: %s", label, strings.Join(values, ", "))}
}

func fieldLabel(key string) string {
	words := strings.Split(strings.ReplaceAll(key, "_", " "), " ")
	for i, w := range words {
		if w == "" {
			continue
		}
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

func yesNo(b bool) string {
	if b {
		return "Yes"
	}
	return "No"
}

// trimFloat prints whole numbers without a trailing ".000000".
func trimFloat(f float64) string {
	if f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.2f", f), "0"), ".")
}
