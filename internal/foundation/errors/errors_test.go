package errors

import (
	stderrors "errors"
	"fmt"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errBoom = stderrors.New("boom")

func TestClassifiedError_Error(t *testing.T) {
	plain := NewError(CategoryComposition, "component chain a -> b -> a").Build()
	assert.Equal(t, "[composition:error] component chain a -> b -> a", plain.Error())

	wrapped := WrapError(errBoom, CategoryFileSystem, "read template").Build()
	assert.Equal(t, "[filesystem:error] read template: boom", wrapped.Error())
	assert.ErrorIs(t, wrapped, errBoom)
	assert.Equal(t, errBoom, wrapped.Cause())
}

func TestBuilder_SeverityAndContext(t *testing.T) {
	err := WrapError(errBoom, CategoryFrontMatter, "parse front matter").
		Warning().
		WithTemplate("pages/index").
		WithContext("path", "src/pages/index.html").
		Build()

	assert.Equal(t, CategoryFrontMatter, err.Category())
	assert.Equal(t, SeverityWarning, err.Severity())
	assert.Equal(t, "parse front matter", err.Message())
	assert.Equal(t, ErrorContext{"template": "pages/index", "path": "src/pages/index.html"}, err.Context())

	// Context returns a copy.
	err.Context()["template"] = "changed"
	assert.Equal(t, "pages/index", err.Context()["template"])
}

func TestBuilder_BuildIsSnapshot(t *testing.T) {
	b := NewError(CategoryValidation, "bad").WithContext("a", 1)
	first := b.Build()
	second := b.Fatal().Build()
	assert.Equal(t, SeverityError, first.Severity())
	assert.Equal(t, SeverityFatal, second.Severity())
}

func TestConstructors(t *testing.T) {
	tests := []struct {
		err      *ClassifiedError
		category ErrorCategory
		severity ErrorSeverity
	}{
		{ConfigError("x").Build(), CategoryConfig, SeverityFatal},
		{ValidationError("x").Build(), CategoryValidation, SeverityFatal},
		{NotFoundError("x").Build(), CategoryNotFound, SeverityWarning},
		{FileSystemError("x").Build(), CategoryFileSystem, SeverityError},
		{FrontMatterError("x").Build(), CategoryFrontMatter, SeverityWarning},
		{CompositionError("x").Build(), CategoryComposition, SeverityError},
		{InternalError("x").Build(), CategoryInternal, SeverityFatal},
	}
	for _, tt := range tests {
		t.Run(string(tt.category), func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category())
			assert.Equal(t, tt.severity, tt.err.Severity())
		})
	}
}

func TestHasCategoryThroughWrapping(t *testing.T) {
	inner := CompositionError("cycle").Build()
	err := fmt.Errorf("update pages/index: %w", inner)

	assert.True(t, HasCategory(err, CategoryComposition))
	assert.False(t, HasCategory(err, CategoryFileSystem))
	assert.False(t, HasCategory(errBoom, CategoryComposition))
	assert.Equal(t, CategoryComposition, CategoryOf(err))
	assert.Equal(t, CategoryInternal, CategoryOf(errBoom))

	got, ok := AsClassified(err)
	require.True(t, ok)
	assert.Same(t, inner, got)
}

func TestLogAttrs_SortedByKey(t *testing.T) {
	err := NewError(CategoryNotFound, "component not found").
		WithContext("reference", "components/nav").
		WithTemplate("pages/index").
		Build()

	attrs := err.LogAttrs()
	require.Len(t, attrs, 3)
	assert.Equal(t, slog.String("category", "not_found"), attrs[0])
	assert.Equal(t, "reference", attrs[1].Key)
	assert.Equal(t, "template", attrs[2].Key)
}
