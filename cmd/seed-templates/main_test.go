package main

import (
	"os"
	"strings"
	"testing"

	"github.com/mmdatafocus/precast_backend/models"
)

func TestLoadTemplates(t *testing.T) {
	src := `
templates:
  - id: tpl-a
    name: Pre-pour
    inspection_type: PRE_POUR
    is_active: true
    items:
      - description: Forms checked
      - description: Embeds located
        severity: CRITICAL
        sequence: 10
`
	templates, err := loadTemplates(strings.NewReader(src))
	if err != nil {
		t.Fatalf("loadTemplates: %v", err)
	}
	if len(templates) != 1 {
		t.Fatalf("got %d templates", len(templates))
	}
	tpl := templates[0]
	if tpl.Version != 1 || tpl.EntityType != "PIECE" || !tpl.IsActive || *tpl.InspectionType != models.InspectionTypePrePour {
		t.Fatalf("template = %+v", tpl)
	}
	first, second := tpl.Items[0], tpl.Items[1]
	if first.Sequence != 1 || first.Severity != models.SeverityNormal || first.ID == "" || first.TemplateId != "tpl-a" {
		t.Fatalf("first item = %+v", first)
	}
	if second.Sequence != 10 || second.Severity != models.SeverityCritical {
		t.Fatalf("second item = %+v", second)
	}
}

func TestLoadTemplatesRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":          "templates: []\n",
		"missing name":   "templates:\n  - id: a\n",
		"unknown field":  "templates:\n  - id: a\n    name: A\n    colour: red\n",
		"bad type":       "templates:\n  - id: a\n    name: A\n    inspection_type: VISUAL\n",
		"bad severity":   "templates:\n  - id: a\n    name: A\n    items:\n      - description: x\n        severity: URGENT\n",
		"no description": "templates:\n  - id: a\n    name: A\n    items:\n      - category: Forms\n",
		"duplicate id":   "templates:\n  - id: a\n    name: A\n  - id: a\n    name: B\n",
	}
	for name, src := range cases {
		if _, err := loadTemplates(strings.NewReader(src)); err == nil {
			t.Fatalf("%s: expected an error", name)
		}
	}
}

func TestExampleFileLoads(t *testing.T) {
	f, err := os.Open("templates.example.yaml")
	if err != nil {
		t.Fatalf("open example: %v", err)
	}
	defer f.Close()
	templates, err := loadTemplates(f)
	if err != nil {
		t.Fatalf("loadTemplates: %v", err)
	}
	if len(templates) != 2 || templates[0].Items[2].Severity != models.SeverityCritical {
		t.Fatalf("templates = %+v", templates)
	}
}
