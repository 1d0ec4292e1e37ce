package review

import (
	"context"
	"errors"
	"testing"

	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	reviewModels "lexcorpus/internal/domain/models/review"
	reviewSvc "lexcorpus/internal/domain/services/review"
)

func TestLoadSystemTemplates(t *testing.T) {
	templates, err := LoadSystemTemplates()
	if err != nil {
		t.Fatalf("LoadSystemTemplates: %v", err)
	}
	if len(templates) < 3 {
		t.Fatalf("got %d system templates, want at least 3", len(templates))
	}

	ids := map[string]bool{}
	for _, tpl := range templates {
		if !tpl.IsSystem || tpl.ID == "" || len(tpl.Columns) == 0 {
			t.Errorf("template %+v", tpl)
		}
		if ids[tpl.ID] {
			t.Errorf("duplicate template id %s", tpl.ID)
		}
		ids[tpl.ID] = true
		for _, c := range tpl.Columns {
			if c.ExtractionPrompt == "" {
				t.Errorf("%s.%s has no prompt", tpl.Name, c.Name)
			}
		}
	}

	contracts := templates[0]
	for _, name := range []string{"Parte", "Prazo"} {
		if _, ok := contracts.Column(name); !ok {
			t.Errorf("%s has no column %s", contracts.Name, name)
		}
	}
}

func column(name string, typ reviewModels.ColumnType) reviewModels.ColumnDef {
	return reviewModels.ColumnDef{Name: name, Type: typ, ExtractionPrompt: "Extraia " + name}
}

func TestCreateTemplate_Validation(t *testing.T) {
	tests := []struct {
		name    string
		columns []reviewModels.ColumnDef
		wantErr bool
	}{
		{"valid", []reviewModels.ColumnDef{column("Parte", reviewModels.ColumnList), column("Valor", reviewModels.ColumnNumber)}, false},
		{"no columns", nil, true},
		{"unknown type", []reviewModels.ColumnDef{column("Parte", "money")}, true},
		{"missing prompt", []reviewModels.ColumnDef{{Name: "Parte", Type: reviewModels.ColumnText}}, true},
		{"duplicate ignoring case", []reviewModels.ColumnDef{column("Parte", reviewModels.ColumnText), column(" parte ", reviewModels.ColumnText)}, true},
		{"reserved name", []reviewModels.ColumnDef{column("Document_ID", reviewModels.ColumnText)}, true},
		{"export suffix separator", []reviewModels.ColumnDef{column("Valor__total", reviewModels.ColumnNumber)}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemTemplates()
			svc := NewTemplateService(repo, discardLogger())
			tpl, err := svc.CreateTemplate(context.Background(), alice, &reviewSvc.CreateTemplateRequest{
				Name:    " Meus contratos ",
				Columns: tt.columns,
			})
			if tt.wantErr {
				if !errors.Is(err, domain.ErrValidation) {
					t.Errorf("error = %v, want validation", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateTemplate: %v", err)
			}
			if tpl.Name != "Meus contratos" || tpl.IsSystem || tpl.OwnerID == nil || *tpl.OwnerID != "alice" {
				t.Errorf("template = %+v", tpl)
			}
			if _, err := repo.GetByID(context.Background(), tpl.ID); err != nil {
				t.Errorf("template not stored: %v", err)
			}
		})
	}
}

func TestTemplateVisibilityAndDelete(t *testing.T) {
	ctx := context.Background()
	repo := newMemTemplates()
	svc := NewTemplateService(repo, discardLogger())
	system := contractTemplate()
	repo.templates[system.ID] = system

	own, err := svc.CreateTemplate(ctx, alice, &reviewSvc.CreateTemplateRequest{
		Name:    "Procurações",
		Columns: []reviewModels.ColumnDef{column("Outorgante", reviewModels.ColumnText)},
	})
	if err != nil {
		t.Fatal(err)
	}

	bobs, err := svc.ListTemplates(ctx, bob)
	if err != nil || len(bobs) != 1 || bobs[0].ID != system.ID {
		t.Errorf("bob lists %+v, %v; want only the system template", bobs, err)
	}
	if _, err := svc.GetTemplate(ctx, bob, own.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("bob reads alice's template: %v", err)
	}
	admin := models.Principal{UserID: "root", Role: models.RoleAdmin}
	if _, err := svc.GetTemplate(ctx, admin, own.ID); err != nil {
		t.Errorf("admin read: %v", err)
	}

	if err := svc.DeleteTemplate(ctx, alice, system.ID); !errors.Is(err, domain.ErrForbidden) {
		t.Errorf("deleting a system template: %v, want forbidden", err)
	}
	if err := svc.DeleteTemplate(ctx, bob, own.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("bob deleting alice's template: %v, want not found", err)
	}
	if err := svc.DeleteTemplate(ctx, alice, own.ID); err != nil {
		t.Errorf("owner delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, own.ID); !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("template still stored after delete: %v", err)
	}
}

func TestSeedSystemTemplates_Idempotent(t *testing.T) {
	ctx := context.Background()
	repo := newMemTemplates()
	svc := NewTemplateService(repo, discardLogger())

	first, err := svc.SeedSystemTemplates(ctx)
	if err != nil {
		t.Fatalf("SeedSystemTemplates: %v", err)
	}
	second, err := svc.SeedSystemTemplates(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first != second || len(repo.templates) != first {
		t.Errorf("seeded %d then %d, stored %d", first, second, len(repo.templates))
	}
	for _, tpl := range repo.templates {
		if !tpl.IsSystem {
			t.Errorf("seeded template %s is not marked system", tpl.Name)
		}
	}
}
