package corpus

import (
	"fmt"
	"strings"

	"lexcorpus/internal/config"
	"lexcorpus/internal/domain"
	"lexcorpus/internal/domain/models"
	corpusModels "lexcorpus/internal/domain/models/corpus"
	corpusSvc "lexcorpus/internal/domain/services/corpus"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

var (
	validScopes = []interface{}{
		corpusModels.ScopeGlobal, corpusModels.ScopePrivate, corpusModels.ScopeGroup, corpusModels.ScopeLocal,
	}
	validProjectScopes = []interface{}{
		corpusModels.ProjectScopePersonal, corpusModels.ProjectScopeOrganization,
	}
)

// validateCreateDocument checks field shapes, then scope/group agreement, then
// the role required by the scope.
func validateCreateDocument(p models.Principal, req *corpusSvc.CreateDocumentRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxDocumentNameLength)),
		validation.Field(&req.Content, validation.Required.Error("content cannot be empty")),
		validation.Field(&req.ContentType, validation.Required),
		validation.Field(&req.Scope, validation.Required, validation.In(validScopes...)),
		validation.Field(&req.Collection, validation.Required, validation.Length(1, config.MaxCollectionLength)),
		validation.Field(&req.GroupIDs, validation.Each(validation.Required)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name cannot be blank", domain.ErrValidation)
	}

	if err := validateScopeGroups(req.Scope, req.GroupIDs); err != nil {
		return err
	}

	if req.Scope == corpusModels.ScopeGroup && !p.IsAdmin() && !p.InGroup(req.GroupIDs[0]) {
		return &domain.ForbiddenError{Message: fmt.Sprintf("not a member of group %s", req.GroupIDs[0])}
	}
	if req.Scope == corpusModels.ScopeGlobal && !p.IsAdmin() {
		return &domain.ForbiddenError{Message: "global documents require the admin role"}
	}
	return nil
}

// validateScopeGroups enforces: group scope carries exactly one group id, other
// scopes carry none.
func validateScopeGroups(scope corpusModels.Scope, groupIDs []string) error {
	switch {
	case scope == corpusModels.ScopeGroup && len(groupIDs) == 0:
		return fmt.Errorf("%w: scope group requires a group id", domain.ErrInvalidScope)
	case scope == corpusModels.ScopeGroup && len(groupIDs) > 1:
		return fmt.Errorf("%w: scope group accepts exactly one group id, got %d", domain.ErrInvalidScope, len(groupIDs))
	case scope != corpusModels.ScopeGroup && len(groupIDs) > 0:
		return fmt.Errorf("%w: group ids are only allowed with scope group", domain.ErrInvalidScope)
	}
	return nil
}

func validateCreateProject(p models.Principal, req *corpusSvc.CreateProjectRequest) error {
	if req.Scope == "" {
		req.Scope = corpusModels.ProjectScopePersonal
	}
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.Required, validation.Length(1, config.MaxProjectNameLength)),
		validation.Field(&req.Scope, validation.In(validProjectScopes...)),
		validation.Field(&req.RetentionDays, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&req.MaxDocuments, validation.NilOrNotEmpty, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if strings.TrimSpace(req.Name) == "" {
		return fmt.Errorf("%w: name cannot be blank", domain.ErrValidation)
	}
	if (req.IsKnowledgeBase || req.Scope == corpusModels.ProjectScopeOrganization) && p.OrganizationID == "" {
		return fmt.Errorf("%w: organization projects require an organization", domain.ErrValidation)
	}
	return nil
}

func validateUpdateProject(req *corpusSvc.UpdateProjectRequest) error {
	err := validation.ValidateStruct(req,
		validation.Field(&req.Name, validation.NilOrNotEmpty, validation.Length(1, config.MaxProjectNameLength)),
		validation.Field(&req.RetentionDays, validation.NilOrNotEmpty, validation.Min(1)),
		validation.Field(&req.MaxDocuments, validation.NilOrNotEmpty, validation.Min(1)),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	if req.Name != nil && strings.TrimSpace(*req.Name) == "" {
		return fmt.Errorf("%w: name cannot be blank", domain.ErrValidation)
	}
	return nil
}

// normalizeOptionalFolder turns "" and nil into the project root and validates
// anything else.
func normalizeOptionalFolder(folderPath *string) (*string, error) {
	if folderPath == nil || strings.Trim(strings.TrimSpace(*folderPath), "/") == "" {
		return nil, nil
	}
	normalized, err := NormalizeFolderPath(*folderPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrValidation, err)
	}
	return &normalized, nil
}
