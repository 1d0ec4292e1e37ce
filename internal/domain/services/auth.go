package services

import (
	"context"

	"lexcorpus/internal/domain/models"
)

// ResourceAuthorizer checks if a principal can access resources.
// Services call it before operating on resources.
type ResourceAuthorizer interface {
	// CanReadDocument checks scope visibility of a document
	CanReadDocument(ctx context.Context, p models.Principal, documentID string) error

	// CanWriteDocument checks the caller may mutate a document (owner or admin)
	CanWriteDocument(ctx context.Context, p models.Principal, documentID string) error

	// CanReadProject checks the caller owns the project or it is a knowledge base of their organization
	CanReadProject(ctx context.Context, p models.Principal, projectID string) error

	// CanWriteProject checks the caller owns the project (or is admin)
	CanWriteProject(ctx context.Context, p models.Principal, projectID string) error

	// CanAccessTable checks the caller owns the review table (or is admin)
	CanAccessTable(ctx context.Context, p models.Principal, tableID string) error
}
