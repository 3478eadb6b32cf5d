package catalog

import (
	"encoding/json"
	"strings"
)

// ToolDescriptor is read-only metadata for one remotely hosted tool.
// InputSchema carries the server's raw JSON schema for the tool arguments.
type ToolDescriptor struct {
	Name        string
	Description string
	InputSchema json.RawMessage
}

// PromptArgument describes one named argument of a server prompt.
type PromptArgument struct {
	Name        string
	Description string
	Required    bool
}

// PromptDescriptor is read-only metadata for one server prompt.
type PromptDescriptor struct {
	Name        string
	Description string
	Arguments   []PromptArgument
}

// ResourceDescriptor is read-only metadata for one server resource. Params
// holds the ordered placeholder names for parametric URIs such as
// "report/{year}/{region}"; it is empty for plain resources.
type ResourceDescriptor struct {
	URI         string
	Name        string
	Description string
	MIMEType    string
	Params      []string
}

// Parametric reports whether the resource URI contains placeholders.
func (r ResourceDescriptor) Parametric() bool { return len(r.Params) > 0 }

// templateParams extracts placeholder names from a resource URI by scanning
// for balanced {...} pairs left to right. A malformed URI is truncated at the
// first unmatched brace: parameters found before that point are kept, the rest
// is ignored.
func templateParams(uri string) []string {
	var params []string
	for i := 0; i < len(uri); i++ {
		switch uri[i] {
		case '{':
			j := strings.IndexByte(uri[i+1:], '}')
			if j < 0 {
				return params
			}
			params = append(params, uri[i+1:i+1+j])
			i += j + 1
		case '}':
			return params
		}
	}
	return params
}
