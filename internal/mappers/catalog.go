package mappers

import (
	"errors"

	"coursera-sync/internal/domain"

	"github.com/tidwall/gjson"
)

// ErrInvalidJSON is returned when a body is not parseable JSON at all.
// A well-formed document of an unexpected shape is not an error; it maps to
// zero courses.
var ErrInvalidJSON = errors.New("mappers: invalid json")

// ParseCourses maps a catalog response body into summaries according to the
// shape the source declared. Unknown shapes yield nil.
func ParseCourses(shape domain.ResponseShape, body []byte) ([]domain.CourseSummary, error) {
	if !gjson.ValidBytes(body) {
		return nil, ErrInvalidJSON
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return nil, nil
	}

	switch shape {
	case domain.ShapeElements:
		return FromElements(doc), nil
	case domain.ShapeLinked:
		return FromLinkedCourses(doc), nil
	case domain.ShapeInitialState:
		return FromInitialState(doc), nil
	case domain.ShapeAuto:
		if doc.Get("elements").Exists() {
			return FromElements(doc), nil
		}
		return FromLinkedCourses(doc), nil
	}
	return nil, nil
}

// FromElements maps {"elements": [...]} where partners and skills are
// lists of {"name": ...} objects.
func FromElements(doc gjson.Result) []domain.CourseSummary {
	elements := doc.Get("elements")
	if !elements.IsArray() {
		return nil
	}

	var out []domain.CourseSummary
	elements.ForEach(func(_, e gjson.Result) bool {
		if !e.IsObject() {
			return true
		}
		out = append(out, domain.CourseSummary{
			ID:            e.Get("id").String(),
			Name:          e.Get("name").String(),
			Slug:          e.Get("slug").String(),
			Description:   e.Get("description").String(),
			PartnerNames:  namesOf(e.Get("partners")),
			Skills:        namesOf(e.Get("skills")),
			LearningHours: e.Get("workload").String(),
			Rating:        e.Get("rating").String(),
		})
		return true
	})
	return out
}

// FromLinkedCourses maps {"linked": {"courses.v1": [...]}}. This variant
// carries partner names inline and only topic ids in place of skills.
func FromLinkedCourses(doc gjson.Result) []domain.CourseSummary {
	courses := doc.Get(`linked.courses\.v1`)
	if !courses.IsArray() {
		return nil
	}

	var out []domain.CourseSummary
	courses.ForEach(func(_, c gjson.Result) bool {
		if !c.IsObject() {
			return true
		}
		out = append(out, domain.CourseSummary{
			ID:            c.Get("id").String(),
			Name:          c.Get("name").String(),
			Slug:          c.Get("slug").String(),
			Description:   c.Get("description").String(),
			PartnerNames:  stringsOf(c.Get("partnerNames")),
			Skills:        stringsOf(c.Get("topicIds")),
			LearningHours: c.Get("workload").String(),
			Rating:        c.Get("rating").String(),
		})
		return true
	})
	return out
}

// FromInitialState maps the browse page state, where browse.courses is an
// object keyed by course id.
func FromInitialState(doc gjson.Result) []domain.CourseSummary {
	courses := doc.Get("browse.courses")
	if !courses.IsObject() {
		return nil
	}

	var out []domain.CourseSummary
	courses.ForEach(func(id, c gjson.Result) bool {
		if !c.IsObject() {
			return true
		}
		out = append(out, domain.CourseSummary{
			ID:            id.String(),
			Name:          c.Get("name").String(),
			Slug:          c.Get("slug").String(),
			Description:   c.Get("description").String(),
			PartnerNames:  namesOf(c.Get("partners")),
			Skills:        stringsOf(c.Get("skills")),
			LearningHours: c.Get("workload").String(),
			Rating:        c.Get("rating").String(),
		})
		return true
	})
	return out
}

// namesOf collects the "name" of every object in a list.
func namesOf(list gjson.Result) []string {
	out := []string{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.Get("name").String())
		return true
	})
	return out
}

func stringsOf(list gjson.Result) []string {
	out := []string{}
	if !list.IsArray() {
		return out
	}
	list.ForEach(func(_, v gjson.Result) bool {
		out = append(out, v.String())
		return true
	})
	return out
}
