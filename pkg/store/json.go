package store

import (
	"encoding/json"
	"fmt"

	"github.com/brentyJ/recog/pkg/models"
)

func marshalSet(s models.StringSet) ([]byte, error) {
	return json.Marshal(s.Slice())
}

func unmarshalSet(raw []byte) (models.StringSet, error) {
	var vals []string
	if len(raw) == 0 {
		return models.NewStringSet(), nil
	}
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, fmt.Errorf("unmarshalling string set: %w", err)
	}
	return models.NewStringSet(vals...), nil
}

func marshalStrings(s []string) ([]byte, error) {
	if s == nil {
		s = []string{}
	}
	return json.Marshal(s)
}

func unmarshalStrings(raw []byte) ([]string, error) {
	if len(raw) == 0 {
		return []string{}, nil
	}
	var vals []string
	if err := json.Unmarshal(raw, &vals); err != nil {
		return nil, fmt.Errorf("unmarshalling string slice: %w", err)
	}
	return vals, nil
}

func marshalMap(m map[string]any) ([]byte, error) {
	if m == nil {
		m = map[string]any{}
	}
	return json.Marshal(m)
}

func unmarshalMap(raw []byte) (map[string]any, error) {
	if len(raw) == 0 {
		return map[string]any{}, nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, fmt.Errorf("unmarshalling map: %w", err)
	}
	return m, nil
}
