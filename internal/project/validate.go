package project

import (
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	dateLayout      = "2006-01-02"
	maxNameLen      = 100
	maxTaskTitleLen = 150

	msgRequired = "This field is required."
	msgBadDate  = "Enter a valid date in YYYY-MM-DD format."
)

func requireText(v *ValidationError, field, value string, max int) string {
	value = strings.TrimSpace(value)
	switch {
	case value == "":
		v.add(field, msgRequired)
	case max > 0 && utf8.RuneCountInString(value) > max:
		v.add(field, "Ensure this value has at most "+strconv.Itoa(max)+" characters.")
	}
	return value
}

func parseDate(v *ValidationError, field, value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		v.add(field, msgRequired)
		return time.Time{}
	}
	t, err := time.Parse(dateLayout, value)
	if err != nil {
		v.add(field, msgBadDate)
	}
	return t
}

func parseStatus(v *ValidationError, value string) Status {
	if value == "" {
		return StatusInProgress
	}
	s := Status(strings.ToUpper(strings.TrimSpace(value)))
	if !s.Valid() {
		v.add("status", "Select a valid choice. "+value+" is not one of the available choices.")
	}
	return s
}

func checkDateOrder(v *ValidationError, p *Project) {
	if p.StartDate.IsZero() || p.EndDate.IsZero() {
		return
	}
	if p.EndDate.Before(p.StartDate) {
		v.add("end_date", "End date cannot be before the start date.")
	}
}

// build validates the input and returns the unsaved project it describes.
func (in CreateInput) build(ownerID string) (*Project, error) {
	v := &ValidationError{}
	p := &Project{
		Name:        requireText(v, "name", in.Name, maxNameLen),
		Description: requireText(v, "description", in.Description, 0),
		StartDate:   parseDate(v, "start_date", in.StartDate),
		EndDate:     parseDate(v, "end_date", in.EndDate),
		IsPublic:    in.IsPublic,
		Status:      parseStatus(v, in.Status),
		OwnerID:     ownerID,
	}
	checkDateOrder(v, p)
	if err := v.errOrNil(); err != nil {
		return nil, err
	}
	return p, nil
}

// apply writes the set fields of in onto p and validates the result.
func (in UpdateInput) apply(p *Project) error {
	v := &ValidationError{}
	if in.Name != nil {
		p.Name = requireText(v, "name", *in.Name, maxNameLen)
	}
	if in.Description != nil {
		p.Description = requireText(v, "description", *in.Description, 0)
	}
	if in.StartDate != nil {
		p.StartDate = parseDate(v, "start_date", *in.StartDate)
	}
	if in.EndDate != nil {
		p.EndDate = parseDate(v, "end_date", *in.EndDate)
	}
	if in.IsPublic != nil {
		p.IsPublic = *in.IsPublic
	}
	if in.Status != nil {
		if *in.Status == "" {
			v.add("status", msgRequired)
		} else {
			p.Status = parseStatus(v, *in.Status)
		}
	}
	checkDateOrder(v, p)
	return v.errOrNil()
}

// build validates the input and returns the unsaved task it describes.
func (in CreateTaskInput) build(projectID string) (*Task, error) {
	v := &ValidationError{}
	t := &Task{
		ProjectID:   projectID,
		Title:       requireText(v, "title", in.Title, maxTaskTitleLen),
		Description: strings.TrimSpace(in.Description),
		DueDate:     parseDate(v, "due_date", in.DueDate),
	}
	if err := v.errOrNil(); err != nil {
		return nil, err
	}
	return t, nil
}

// apply writes the set fields of in onto t and validates the result.
func (in UpdateTaskInput) apply(t *Task) error {
	v := &ValidationError{}
	if in.Title != nil {
		t.Title = requireText(v, "title", *in.Title, maxTaskTitleLen)
	}
	if in.Description != nil {
		t.Description = strings.TrimSpace(*in.Description)
	}
	if in.DueDate != nil {
		t.DueDate = parseDate(v, "due_date", *in.DueDate)
	}
	if in.IsComplete != nil {
		t.IsComplete = *in.IsComplete
	}
	return v.errOrNil()
}

// normalize applies list defaults and rejects unknown filter values.
func (f ListFilter) normalize() (ListFilter, error) {
	v := &ValidationError{}
	switch f.View {
	case "":
		f.View = ViewMine
	case ViewMine, ViewPublic, ViewAll:
	default:
		v.add("view", "Unknown view "+f.View+".")
	}
	if f.Status != "" && !f.Status.Valid() {
		v.add("status", "Unknown status "+string(f.Status)+".")
	}
	f.Query = strings.TrimSpace(f.Query)
	if f.Page < 1 {
		f.Page = 1
	}
	return f, v.errOrNil()
}

// dedupe returns ids without repeats, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
