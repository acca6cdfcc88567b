package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// FlexibleID - ID бэкенда, который приходит строкой или числом.
type FlexibleID string

func (id *FlexibleID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*id = ""
		return nil
	case len(data) > 0 && data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexibleID(s)
		return nil
	default:
		var n json.Number
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("id must be a string or a number, got %s", data)
		}
		*id = FlexibleID(n.String())
		return nil
	}
}

func (p *Project) UnmarshalJSON(data []byte) error {
	type plain Project
	aux := struct {
		*plain
		ID FlexibleID `json:"id"`
	}{plain: (*plain)(p)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	p.ID = string(aux.ID)
	return nil
}

func (f *AssignedFreelancer) UnmarshalJSON(data []byte) error {
	type plain AssignedFreelancer
	aux := struct {
		*plain
		ID FlexibleID `json:"id"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.ID = string(aux.ID)
	return nil
}

func (f *Freelancer) UnmarshalJSON(data []byte) error {
	type plain Freelancer
	aux := struct {
		*plain
		ID FlexibleID `json:"id"`
	}{plain: (*plain)(f)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	f.ID = string(aux.ID)
	return nil
}

func (b *Bid) UnmarshalJSON(data []byte) error {
	type plain Bid
	aux := struct {
		*plain
		ID FlexibleID `json:"id"`
	}{plain: (*plain)(b)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	b.ID = string(aux.ID)
	return nil
}
