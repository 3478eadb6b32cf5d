package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTemplateParams(t *testing.T) {
	tests := []struct {
		name string
		uri  string
		want []string
	}{
		{
			name: "two parameters in order",
			uri:  "report/{year}/{region}",
			want: []string{"year", "region"},
		},
		{
			name: "plain resource",
			uri:  "plain",
			want: nil,
		},
		{
			name: "single parameter",
			uri:  "docs://guides/{slug}",
			want: []string{"slug"},
		},
		{
			name: "unmatched open brace truncates",
			uri:  "report/{year}/{region",
			want: []string{"year"},
		},
		{
			name: "stray close brace truncates",
			uri:  "report/}oops/{year}",
			want: nil,
		},
		{
			name: "empty placeholder",
			uri:  "x/{}/y",
			want: []string{""},
		},
		{
			name: "adjacent placeholders",
			uri:  "{a}{b}",
			want: []string{"a", "b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, templateParams(tt.uri))
		})
	}
}

func TestResourceDescriptor_Parametric(t *testing.T) {
	assert.True(t, ResourceDescriptor{Params: []string{"year"}}.Parametric())
	assert.False(t, ResourceDescriptor{URI: "plain"}.Parametric())
}
