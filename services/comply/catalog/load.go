// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

package catalog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// frameworkDocument is the on-disk JSON shape for framework data.
//
// Two layouts are accepted, matching how NIST publishes its catalogs:
//
//   - Hierarchical (CSF style): functions → categories → subcategories.
//   - Flat (800-53 style): a families list plus a flat controls list,
//     where each control names its family. The family is projected onto
//     both function and category, since 800-53 has no middle tier.
type frameworkDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Version     string `json:"version"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`

	Functions []functionDocument `json:"functions"`

	Families []familyDocument  `json:"families"`
	Controls []controlDocument `json:"controls"`
}

type functionDocument struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Categories  []categoryDocument `json:"categories"`
}

type categoryDocument struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Subcategories []controlDocument `json:"subcategories"`
}

type familyDocument struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type controlDocument struct {
	ID                     string   `json:"id"`
	Name                   string   `json:"name"`
	Description            string   `json:"description"`
	FamilyID               string   `json:"family_id"`
	Keywords               []string `json:"keywords"`
	ImplementationExamples []string `json:"implementation_examples"`
	InformativeReferences  []string `json:"informative_references"`
}

// Load parses and validates framework source data.
//
// # Description
//
//	Builds a fully validated, immutable Framework from JSON bytes.
//	Load is all-or-nothing: any validation failure returns a *Error and
//	no partial framework. Validation enforces:
//
//	  - framework id, name, and version are present
//	  - every control has a unique id within the framework
//	  - every control's declared parent category and function exist
//
// # Inputs
//
//	data - Raw JSON in either of the accepted layouts.
//
// # Outputs
//
//	*Framework - The loaded framework, ready for Store.Install.
//	error - *Error on malformed data.
func Load(data []byte) (*Framework, error) {
	var doc frameworkDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, &Error{Reason: fmt.Sprintf("parse framework data: %v", err)}
	}

	if doc.ID == "" {
		return nil, &Error{Reason: "framework id is required"}
	}
	if doc.Name == "" {
		return nil, &Error{Framework: doc.ID, Reason: "framework name is required"}
	}
	if doc.Version == "" {
		return nil, &Error{Framework: doc.ID, Reason: "framework version is required"}
	}

	fw := &Framework{
		ID:          doc.ID,
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		SourceURL:   doc.SourceURL,
		byID:        make(map[string]int),
	}

	switch {
	case len(doc.Functions) > 0:
		if err := buildHierarchical(fw, doc.Functions); err != nil {
			return nil, err
		}
	case len(doc.Controls) > 0:
		if err := buildFlat(fw, doc.Families, doc.Controls); err != nil {
			return nil, err
		}
	default:
		return nil, &Error{Framework: doc.ID, Reason: "framework declares no controls"}
	}

	return fw, nil
}

// LoadFile loads framework data from a JSON file.
func LoadFile(path string) (*Framework, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &Error{Reason: fmt.Sprintf("read %s: %v", filepath.Base(path), err)}
	}
	return Load(data)
}

// buildHierarchical assembles CSF-style function/category/subcategory data.
func buildHierarchical(fw *Framework, funcs []functionDocument) error {
	for _, fd := range funcs {
		if fd.ID == "" {
			return &Error{Framework: fw.ID, Reason: "function with empty id"}
		}
		fn := Function{
			ID:          fd.ID,
			Name:        fd.Name,
			Description: fd.Description,
		}
		for _, cd := range fd.Categories {
			if cd.ID == "" {
				return &Error{Framework: fw.ID, Reason: fmt.Sprintf("category with empty id in function %s", fd.ID)}
			}
			cat := Category{
				ID:          cd.ID,
				Name:        cd.Name,
				Description: cd.Description,
				FunctionID:  fd.ID,
			}
			for _, sd := range cd.Subcategories {
				ctrl, err := buildControl(fw, sd, fd.ID, cd.ID)
				if err != nil {
					return err
				}
				cat.Controls = append(cat.Controls, ctrl)
			}
			fn.Categories = append(fn.Categories, cat)
		}
		fw.Functions = append(fw.Functions, fn)
	}
	return nil
}

// buildFlat assembles 800-53-style family/control data. Families become
// both the function and category tier.
func buildFlat(fw *Framework, families []familyDocument, controls []controlDocument) error {
	// Pre-size so the index pointers below survive the appends.
	fw.Functions = make([]Function, 0, len(families))
	byFamily := make(map[string]*Function, len(families))
	for _, fam := range families {
		if fam.ID == "" {
			return &Error{Framework: fw.ID, Reason: "family with empty id"}
		}
		fn := Function{
			ID:          fam.ID,
			Name:        fam.Name,
			Description: fam.Description,
			Categories: []Category{{
				ID:          fam.ID,
				Name:        fam.Name,
				Description: fam.Description,
				FunctionID:  fam.ID,
			}},
		}
		fw.Functions = append(fw.Functions, fn)
		byFamily[fam.ID] = &fw.Functions[len(fw.Functions)-1]
	}

	for _, cd := range controls {
		fn, ok := byFamily[cd.FamilyID]
		if !ok {
			return &Error{
				Framework: fw.ID,
				Reason:    fmt.Sprintf("control %s references unknown family %q", cd.ID, cd.FamilyID),
			}
		}
		ctrl, err := buildControl(fw, cd, cd.FamilyID, cd.FamilyID)
		if err != nil {
			return err
		}
		fn.Categories[0].Controls = append(fn.Categories[0].Controls, ctrl)
	}
	return nil
}

// buildControl validates one control document and registers it in the
// framework's flat index.
func buildControl(fw *Framework, cd controlDocument, functionID, categoryID string) (Control, error) {
	if cd.ID == "" {
		return Control{}, &Error{
			Framework: fw.ID,
			Reason:    fmt.Sprintf("control with empty id in category %s", categoryID),
		}
	}
	if _, dup := fw.byID[cd.ID]; dup {
		return Control{}, &Error{
			Framework: fw.ID,
			Reason:    fmt.Sprintf("duplicate control id %q", cd.ID),
		}
	}

	name := cd.Name
	if name == "" {
		name = cd.ID
	}
	ctrl := Control{
		ID:                     cd.ID,
		Name:                   name,
		Description:            cd.Description,
		FunctionID:             functionID,
		CategoryID:             categoryID,
		Keywords:               cd.Keywords,
		ImplementationExamples: cd.ImplementationExamples,
		InformativeReferences:  cd.InformativeReferences,
	}

	fw.byID[ctrl.ID] = len(fw.controls)
	fw.controls = append(fw.controls, ctrl)
	return ctrl, nil
}
