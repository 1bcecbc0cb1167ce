package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/mmdatafocus/precast_backend/config"
	"github.com/mmdatafocus/precast_backend/models"
	"github.com/mmdatafocus/precast_backend/repositories/gormstore"
	"gopkg.in/yaml.v3"
)

type templateFile struct {
	Templates []models.ChecklistTemplate `yaml:"templates"`
}

func main() {
	file := flag.String("file", "", "YAML file with checklist templates (required)")
	dryRun := flag.Bool("dry-run", false, "Validate the file without writing to the database")
	flag.Parse()

	if strings.TrimSpace(*file) == "" {
		fmt.Fprintln(os.Stderr, "-file is required")
		os.Exit(2)
	}
	f, err := os.Open(*file)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open %s: %v\n", *file, err)
		os.Exit(1)
	}
	defer f.Close()

	templates, err := loadTemplates(f)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid template file: %v\n", err)
		os.Exit(1)
	}
	if *dryRun {
		for _, tpl := range templates {
			fmt.Printf("ok %s (%s) v%d items=%d active=%t\n", tpl.ID, tpl.Name, tpl.Version, len(tpl.Items), tpl.IsActive)
		}
		return
	}

	config.ConnectDatabaseWithRetry()
	db := config.GetDB()
	if db == nil {
		fmt.Fprintln(os.Stderr, "database not initialized (config.GetDB returned nil)")
		os.Exit(1)
	}
	models.MigrateTable()
	// cached templates are evicted on save when redis is reachable
	if strings.TrimSpace(os.Getenv("REDIS_ADDRESS")) != "" {
		config.ConnectRedisWithRetry()
	}

	store := gormstore.NewTemplateStore(db, config.GetLogger())
	ctx := context.Background()
	failed := 0
	for i := range templates {
		if err := store.SaveTemplate(ctx, &templates[i]); err != nil {
			fmt.Fprintf(os.Stderr, "template %s: %v\n", templates[i].ID, err)
			failed++
			continue
		}
		fmt.Printf("saved %s (%s) v%d items=%d\n", templates[i].ID, templates[i].Name, templates[i].Version, len(templates[i].Items))
	}
	if failed > 0 {
		os.Exit(1)
	}
}

// loadTemplates decodes and normalizes templates. is_active must be set explicitly; omitted means inactive.
func loadTemplates(r io.Reader) ([]models.ChecklistTemplate, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	var doc templateFile
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("no templates in file")
	}

	seen := make(map[string]bool, len(doc.Templates))
	for i := range doc.Templates {
		tpl := &doc.Templates[i]
		if strings.TrimSpace(tpl.ID) == "" || strings.TrimSpace(tpl.Name) == "" {
			return nil, fmt.Errorf("template %d: id and name are required", i+1)
		}
		if seen[tpl.ID] {
			return nil, fmt.Errorf("template %s: duplicate id", tpl.ID)
		}
		seen[tpl.ID] = true
		if tpl.InspectionType != nil && !tpl.InspectionType.IsValid() {
			return nil, fmt.Errorf("template %s: unknown inspection_type %q", tpl.ID, *tpl.InspectionType)
		}
		if tpl.Version <= 0 {
			tpl.Version = 1
		}
		if tpl.EntityType == "" {
			tpl.EntityType = "PIECE"
		}
		for j := range tpl.Items {
			item := &tpl.Items[j]
			if strings.TrimSpace(item.Description) == "" {
				return nil, fmt.Errorf("template %s item %d: description is required", tpl.ID, j+1)
			}
			if item.Severity == "" {
				item.Severity = models.SeverityNormal
			}
			if !item.Severity.IsValid() {
				return nil, fmt.Errorf("template %s item %d: unknown severity %q", tpl.ID, j+1, item.Severity)
			}
			if item.Sequence == 0 {
				item.Sequence = j + 1
			}
			if item.ID == "" {
				item.ID = uuid.NewString()
			}
			item.TemplateId = tpl.ID
		}
	}
	return doc.Templates, nil
}
