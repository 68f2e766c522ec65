package domain

import (
	"fmt"
	"strings"
)

// ResponseShape tags the JSON layout a catalog source is expected to return.
type ResponseShape string

const (
	// ShapeElements is a flat {"elements": [...]} list.
	ShapeElements ResponseShape = "elements"
	// ShapeLinked is {"linked": {"courses.v1": [...]}}.
	ShapeLinked ResponseShape = "linked"
	// ShapeAuto probes elements first, then linked.
	ShapeAuto ResponseShape = "auto"
	// ShapeInitialState is the browse page's embedded initialState blob.
	ShapeInitialState ResponseShape = "initialState"
)

func ParseResponseShape(s string) (ResponseShape, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ShapeAuto, nil
	case "elements":
		return ShapeElements, nil
	case "linked":
		return ShapeLinked, nil
	case "initialstate", "initial_state":
		return ShapeInitialState, nil
	}
	return "", fmt.Errorf("domain: unknown response shape %q", s)
}
