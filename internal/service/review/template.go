package review

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	reviewModels "lexcorpus/internal/domain/models/review"
	reviewRepo "lexcorpus/internal/domain/repositories/review"
	reviewSvc "lexcorpus/internal/domain/services/review"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

//go:embed templates/*.yaml
var templateFiles embed.FS

// Export column names reserved next to the template's own columns.
const (
	columnDocumentID   = "document_id"
	columnDocumentName = "document_name"
	suffixConfidence   = "__confidence"
	suffixVerified     = "__verified"
)

// LoadSystemTemplates parses the embedded system templates
func LoadSystemTemplates() ([]reviewModels.Template, error) {
	data, err := templateFiles.ReadFile("templates/system.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read system templates: %w", err)
	}

	var templates []reviewModels.Template
	if err := yaml.Unmarshal(data, &templates); err != nil {
		return nil, fmt.Errorf("failed to unmarshal system templates: %w", err)
	}
	for i := range templates {
		templates[i].IsSystem = true
		if err := validateColumns(templates[i].Columns); err != nil {
			return nil, fmt.Errorf("system template %q: %w", templates[i].Name, err)
		}
	}
	return templates, nil
}

// templateService implements reviewSvc.TemplateService
type templateService struct {
	templateRepo reviewRepo.TemplateRepository
	logger       *slog.Logger
}

// NewTemplateService creates a new template service
func NewTemplateService(templateRepo reviewRepo.TemplateRepository, logger *slog.Logger) reviewSvc.TemplateService {
	return &templateService{
		templateRepo: templateRepo,
		logger:       logger,
	}
}

// ListTemplates lists system templates and the caller's own
func (s *templateService) ListTemplates(ctx context.Context, p models.Principal) ([]reviewModels.Template, error) {
	templates, err := s.templateRepo.List(ctx, p.UserID)
	if err != nil {
		return nil, err
	}
	if templates == nil {
		templates = []reviewModels.Template{}
	}
	return templates, nil
}

// GetTemplate retrieves a system template or one owned by the caller
func (s *templateService) GetTemplate(ctx context.Context, p models.Principal, templateID string) (*reviewModels.Template, error) {
	return loadTemplate(ctx, s.templateRepo, p, templateID)
}

// loadTemplate hides other users' templates behind NotFound
func loadTemplate(ctx context.Context, repo reviewRepo.TemplateRepository, p models.Principal, templateID string) (*reviewModels.Template, error) {
	tpl, err := repo.GetByID(ctx, templateID)
	if err != nil {
		return nil, err
	}
	if tpl.IsSystem || p.IsAdmin() || (tpl.OwnerID != nil && *tpl.OwnerID == p.UserID) {
		return tpl, nil
	}
	return nil, fmt.Errorf("template %s: %w", templateID, domain.ErrNotFound)
}

// CreateTemplate stores a user template
func (s *templateService) CreateTemplate(ctx context.Context, p models.Principal, req *reviewSvc.CreateTemplateRequest) (*reviewModels.Template, error) {
	if err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxProjectNameLength)),
		validation.Field(&req.Columns, validation.Required, validation.Length(1, config.MaxTemplateColumns)),
	); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	columns := make([]reviewModels.ColumnDef, len(req.Columns))
	for i, c := range req.Columns {
		columns[i] = reviewModels.ColumnDef{
			Name:             strings.TrimSpace(c.Name),
			Type:             c.Type,
			ExtractionPrompt: strings.TrimSpace(c.ExtractionPrompt),
		}
	}
	if err := validateColumns(columns); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}

	owner := p.UserID
	tpl := &reviewModels.Template{
		ID:          uuid.NewString(),
		Name:        strings.TrimSpace(req.Name),
		Description: req.Description,
		Area:        req.Area,
		Columns:     columns,
		OwnerID:     &owner,
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.templateRepo.Create(ctx, tpl); err != nil {
		return nil, err
	}

	s.logger.Info("review template created",
		"id", tpl.ID,
		"name", tpl.Name,
		"columns", len(tpl.Columns),
	)
	return tpl, nil
}

// validateColumns checks names are unique and none collides with the export columns
func validateColumns(columns []reviewModels.ColumnDef) error {
	if len(columns) == 0 {
		return fmt.Errorf("at least one column is required")
	}
	seen := make(map[string]bool, len(columns))
	for i, c := range columns {
		err := validation.ValidateStruct(&c,
			validation.Field(&c.Name, validation.Required, validation.Length(1, 100)),
			validation.Field(&c.Type, validation.Required, validation.By(func(value interface{}) error {
				if !value.(reviewModels.ColumnType).Valid() {
					return fmt.Errorf("must be one of text, date, number, boolean, list")
				}
				return nil
			})),
			validation.Field(&c.ExtractionPrompt, validation.Required),
		)
		if err != nil {
			return fmt.Errorf("column %d: %v", i+1, err)
		}

		key := strings.ToLower(c.Name)
		switch {
		case seen[key]:
			return fmt.Errorf("duplicate column name %q", c.Name)
		case key == columnDocumentID || key == columnDocumentName:
			return fmt.Errorf("column name %q is reserved", c.Name)
		case strings.Contains(c.Name, "__"):
			return fmt.Errorf("column name %q cannot contain \"__\"", c.Name)
		}
		seen[key] = true
	}
	return nil
}

// DeleteTemplate removes a user template. System templates are immutable.
func (s *templateService) DeleteTemplate(ctx context.Context, p models.Principal, templateID string) error {
	tpl, err := loadTemplate(ctx, s.templateRepo, p, templateID)
	if err != nil {
		return err
	}
	if tpl.IsSystem {
		return &domain.ForbiddenError{Message: "system templates cannot be deleted"}
	}
	if err := s.templateRepo.Delete(ctx, templateID); err != nil {
		return err
	}

	s.logger.Info("review template deleted", "id", templateID)
	return nil
}

// SeedSystemTemplates upserts the embedded system templates
func (s *templateService) SeedSystemTemplates(ctx context.Context) (int, error) {
	templates, err := LoadSystemTemplates()
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC()
	for i := range templates {
		templates[i].CreatedAt = now
		if err := s.templateRepo.UpsertSystem(ctx, &templates[i]); err != nil {
			return i, fmt.Errorf("seed template %q: %w", templates[i].Name, err)
		}
	}

	s.logger.Info("system templates seeded", "count", len(templates))
	return len(templates), nil
}
