package domain

import "fmt"

// ValidationError describes one violated modifier selection rule on one cart
// line. These are advisory values, not Go errors: mutations never block on
// them, only the checkout flow consults them.
type ValidationError struct {
	ItemID    string `json:"item_id"`
	ItemName  string `json:"item_name"`
	GroupID   string `json:"group_id"`
	GroupName string `json:"group_name"`
	Message   string `json:"message"`
}

// ValidationResult is the outcome of validating a whole cart.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors []ValidationError `json:"errors"`
}

// Validate checks every line's every modifier group against the selection
// rules captured at selection time: required groups must have at least one
// option, selections must reach MinSelect, and must not exceed MaxSelect
// when MaxSelect is bounded (> 0). One error is produced per violated rule.
func Validate(c Cart) ValidationResult {
	var errs []ValidationError
	for _, it := range c.Items {
		for _, m := range it.Modifiers {
			selected := len(m.Options)
			if m.Required && selected == 0 {
				errs = append(errs, ValidationError{
					ItemID:    it.ID,
					ItemName:  it.Name,
					GroupID:   m.GroupID,
					GroupName: m.GroupName,
					Message:   fmt.Sprintf("%s: selection required for %q", it.Name, m.GroupName),
				})
				continue
			}
			if selected < m.MinSelect {
				errs = append(errs, ValidationError{
					ItemID:    it.ID,
					ItemName:  it.Name,
					GroupID:   m.GroupID,
					GroupName: m.GroupName,
					Message:   fmt.Sprintf("%s: %q needs at least %d selection(s), got %d", it.Name, m.GroupName, m.MinSelect, selected),
				})
			}
			if m.MaxSelect > 0 && selected > m.MaxSelect {
				errs = append(errs, ValidationError{
					ItemID:    it.ID,
					ItemName:  it.Name,
					GroupID:   m.GroupID,
					GroupName: m.GroupName,
					Message:   fmt.Sprintf("%s: %q allows at most %d selection(s), got %d", it.Name, m.GroupName, m.MaxSelect, selected),
				})
			}
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
