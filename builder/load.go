// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package builder

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"

	"github.com/AleutianAI/nextstep/graph"
	"github.com/AleutianAI/nextstep/pkg/validation"
)

// docValidate is the validator instance for definition documents.
// Initialized in init() with the identifier validator registered.
var docValidate *validator.Validate

func init() {
	docValidate = validator.New()
	_ = docValidate.RegisterValidation("identifier", validateIdentifier)
}

// validateIdentifier checks the node/procedure/actor identifier shape.
func validateIdentifier(fl validator.FieldLevel) bool {
	return validation.ValidateIdentifier(fl.Field().String()) == nil
}

// NodeDoc is a node entry in a definition document.
type NodeDoc struct {
	ID    string `json:"id" yaml:"id" validate:"required,identifier"`
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Kind  string `json:"kind,omitempty" yaml:"kind,omitempty"`
}

// EdgeDoc is an edge entry in a definition document.
type EdgeDoc struct {
	From   string  `json:"from" yaml:"from" validate:"required,identifier"`
	To     string  `json:"to" yaml:"to" validate:"required,identifier"`
	Actor  string  `json:"actor" yaml:"actor" validate:"required,identifier"`
	Weight float64 `json:"weight" yaml:"weight" validate:"gte=0"`
	Guard  string  `json:"guard,omitempty" yaml:"guard,omitempty"`
}

// ProcedureDoc is a procedure entry in a definition document.
type ProcedureDoc struct {
	ID    string   `json:"id" yaml:"id" validate:"required,identifier"`
	Nodes []string `json:"nodes" yaml:"nodes" validate:"required,min=1,dive,identifier"`
}

// DefinitionDoc is the wire form of a graph definition.
type DefinitionDoc struct {
	Actors     []string       `json:"actors,omitempty" yaml:"actors,omitempty" validate:"dive,identifier"`
	Nodes      []NodeDoc      `json:"nodes,omitempty" yaml:"nodes,omitempty" validate:"dive"`
	Edges      []EdgeDoc      `json:"edges" yaml:"edges" validate:"required,min=1,dive"`
	Procedures []ProcedureDoc `json:"procedures,omitempty" yaml:"procedures,omitempty" validate:"dive"`
}

// Validate checks the document against its field tags.
func (d *DefinitionDoc) Validate() error {
	return docValidate.Struct(d)
}

// Definition converts the document into a graph.Definition.
func (d *DefinitionDoc) Definition() graph.Definition {
	def := graph.Definition{}
	for _, a := range d.Actors {
		def.Actors = append(def.Actors, graph.Actor(a))
	}
	for _, n := range d.Nodes {
		def.Nodes = append(def.Nodes, graph.Node{ID: n.ID, Label: n.Label, Kind: n.Kind})
	}
	for _, e := range d.Edges {
		def.Edges = append(def.Edges, graph.Edge{
			From:   e.From,
			To:     e.To,
			Actor:  graph.Actor(e.Actor),
			Weight: e.Weight,
			Guard:  e.Guard,
		})
	}
	for _, p := range d.Procedures {
		def.Procedures = append(def.Procedures, graph.Procedure{ID: p.ID, NodeSequence: p.Nodes})
	}
	return def
}

// FromJSON parses and validates a JSON definition document.
func FromJSON(data []byte) (graph.Definition, error) {
	var doc DefinitionDoc
	if err := json.Unmarshal(data, &doc); err != nil {
		return graph.Definition{}, errors.Wrap(err, "parsing definition JSON")
	}
	if err := doc.Validate(); err != nil {
		return graph.Definition{}, errors.Wrap(err, "validating definition document")
	}
	return doc.Definition(), nil
}

// FromYAML parses and validates a YAML definition document.
func FromYAML(data []byte) (graph.Definition, error) {
	var doc DefinitionDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return graph.Definition{}, errors.Wrap(err, "parsing definition YAML")
	}
	if err := doc.Validate(); err != nil {
		return graph.Definition{}, errors.Wrap(err, "validating definition document")
	}
	return doc.Definition(), nil
}

// FromFile loads a definition document, choosing the parser by file
// extension (.yaml/.yml or .json).
func FromFile(path string) (graph.Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return graph.Definition{}, errors.Wrapf(err, "reading definition file %s", path)
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FromYAML(data)
	default:
		return FromJSON(data)
	}
}

// BuildFile loads a definition document and constructs the rule graph.
func BuildFile(path string, opts ...graph.Option) (*graph.RuleGraph, error) {
	def, err := FromFile(path)
	if err != nil {
		return nil, err
	}
	g, err := graph.NewRuleGraph(def, opts...)
	if err != nil {
		return nil, errors.Wrapf(err, "building graph from %s", path)
	}
	return g, nil
}
