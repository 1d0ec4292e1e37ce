package config

import "time"

const (
	// MaxProjectNameLength is the maximum length for project names.
	// Limited to 255 to fit in PostgreSQL VARCHAR(255).
	MaxProjectNameLength = 255

	// MaxDocumentNameLength is the maximum length for document names.
	MaxDocumentNameLength = 255

	// MaxFolderNameLength is the maximum length of one folder path segment.
	MaxFolderNameLength = 255

	// MaxFolderPathLength bounds the full "/"-joined folder path.
	MaxFolderPathLength = 1024

	// MaxCollectionLength bounds the free-form collection tag.
	MaxCollectionLength = 100

	// MaxTemplateColumns bounds the number of columns in a review template.
	MaxTemplateColumns = 50

	// MaxReviewTableDocuments bounds how many documents one review table may cover.
	MaxReviewTableDocuments = 500

	// MaxSearchResults bounds how many document ids one search pulls from the index.
	MaxSearchResults = 1000

	// MaxExportRows bounds a document export.
	MaxExportRows = 10000

	// MaxUploadBytes bounds one multipart document upload.
	MaxUploadBytes = 50 << 20
)

const (
	// LocalDocumentTTL is how long a local-scope document lives after ingestion.
	LocalDocumentTTL = 7 * 24 * time.Hour

	// MinTTLExtensionDays and MaxTTLExtensionDays bound one ExtendTTL call.
	MinTTLExtensionDays = 1
	MaxTTLExtensionDays = 90

	// DefaultDuplicateThreshold is the similarity at or above which a pair is reported.
	DefaultDuplicateThreshold = 0.8

	// ShingleSize is the word count of one shingle used by the similarity check.
	ShingleSize = 5

	// MaxQueryContextChars bounds the table rendering sent with a question.
	MaxQueryContextChars = 60000

	// MaxExtractionInputChars bounds the document text sent for one cell.
	MaxExtractionInputChars = 100000
)
