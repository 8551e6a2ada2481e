// ABOUTME: Request DTOs for read-aloud endpoints
// ABOUTME: A page is given either inline as HTML or as a URL to fetch

package requests

import (
	"strings"

	"cropguard-api/core/errors"
)

// ReadPageRequest starts reading a page aloud
type ReadPageRequest struct {
	// HTML is the markup of the page currently on screen
	HTML string `json:"html,omitempty" maxLength:"1048576" doc:"Markup of the page on screen"`

	// URL is fetched when HTML is empty
	URL string `json:"url,omitempty" doc:"Page to fetch and read"`

	// Article reduces a fetched page to its main article
	Article bool `json:"article,omitempty" doc:"Read only the main article of a fetched page"`

	// Lang is the UI language code used to pick the speech locale
	Lang string `json:"lang,omitempty" default:"en" doc:"UI language code; unsupported codes read in en-US"`
}

// ApplyDefaults sets default values for optional fields
func (r *ReadPageRequest) ApplyDefaults() {
	r.HTML = strings.TrimSpace(r.HTML)
	r.URL = strings.TrimSpace(r.URL)
	if r.Lang == "" {
		r.Lang = "en"
	}
}

// HasPage reports whether the request names a page
func (r *ReadPageRequest) HasPage() bool {
	return r.HTML != "" || r.URL != ""
}

// Validate checks exactly one page source is given
func (r *ReadPageRequest) Validate() error {
	switch {
	case r.HTML != "" && r.URL != "":
		return &errors.ValidationError{Field: "html", Message: "give either html or url, not both"}
	case !r.HasPage():
		return &errors.ValidationError{Field: "html", Message: "html or url is required"}
	case r.Article && r.URL == "":
		return &errors.ValidationError{Field: "article", Message: "article mode needs a url"}
	}
	return nil
}

// AckRequest reports the end of an utterance spoken by the device
type AckRequest struct {
	Generation uint64 `json:"generation" doc:"Generation of the utterance event"`
	Index      int    `json:"index" minimum:"0" doc:"Index of the utterance event"`
	Error      string `json:"error,omitempty" maxLength:"256" doc:"Set when the device could not speak the utterance"`
}
