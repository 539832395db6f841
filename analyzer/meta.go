package analyzer

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/dyatlov/go-opengraph/opengraph"

	"github.com/use-agent/pagelens/document"
	"github.com/use-agent/pagelens/models"
)

// relToken matches a link whose space-separated rel list contains token.
func relToken(token string) document.Filter {
	return func(e document.Element) bool {
		rel, ok := e.Attr("rel")
		if !ok {
			return false
		}
		for _, t := range strings.Fields(rel) {
			if strings.EqualFold(t, token) {
				return true
			}
		}
		return false
	}
}

func checkCanonical(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	link, found := doc.First("link", relToken("canonical"), document.HasAttr("href"))
	href := ""
	if found {
		href = strings.TrimSpace(link.AttrOr("href", ""))
	}
	if href == "" {
		return models.NewResult().
			Set("canonical_url", "").
			Set("status", "Missing").
			Messagef("No canonical tag found on the page."), nil
	}

	rec := models.NewResult().
		Set("canonical_url", href).
		Set("status", "Found")
	if abs, err := doc.Resolve(href); err == nil {
		rec.Set("canonical_absolute", abs.String()).
			Set("self_referencing", sameResource(abs.String(), in.URL.String()))
	}
	return rec.Messagef("Canonical tag found: %s", href), nil
}

// sameResource compares two absolute URLs ignoring a trailing slash and
// the fragment.
func sameResource(a, b string) bool {
	norm := func(s string) string {
		if i := strings.IndexByte(s, '#'); i >= 0 {
			s = s[:i]
		}
		return strings.TrimSuffix(s, "/")
	}
	return strings.EqualFold(norm(a), norm(b))
}

func extractSocialMeta(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	og, twitter := models.NewFields(), models.NewFields()
	for meta := range doc.FindAll("meta") {
		key := meta.AttrOr("property", "")
		if key == "" {
			key = meta.AttrOr("name", "")
		}
		content := meta.AttrOr("content", "")
		switch {
		case strings.HasPrefix(key, "og:"):
			og.Set(key, content)
		case strings.HasPrefix(key, "twitter:"):
			twitter.Set(key, content)
		}
	}

	return models.NewResult().
		Set("og_tags", og).
		Set("twitter_tags", twitter).
		Messagef("Found %d Open Graph and %d Twitter Card tags.", og.Len(), twitter.Len()), nil
}

func checkViewport(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	meta, found := doc.First("meta", document.AttrEquals("name", "viewport"), document.HasAttr("content"))
	if !found {
		return models.NewResult().
			Set("is_responsive", false).
			Set("viewport_content", "").
			Set("uses_device_width", false).
			Messagef("No viewport meta tag found. This page may not be mobile responsive."), nil
	}

	content := meta.AttrOr("content", "")
	deviceWidth := strings.Contains(strings.ReplaceAll(strings.ToLower(content), " ", ""), "width=device-width")
	return models.NewResult().
		Set("is_responsive", true).
		Set("viewport_content", content).
		Set("uses_device_width", deviceWidth).
		Messagef("Viewport meta tag found: %s", content), nil
}

// MetaPreview collects a fixed list of meta tags into preview fields.
type MetaPreview struct {
	// Attr is the attribute holding the tag name: "name" or "property".
	Attr string

	// Tags maps each meta tag to its result field, in output order.
	Tags [][2]string

	Message string
}

func (p MetaPreview) Analyze(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	rec := models.NewResult()
	for _, tag := range p.Tags {
		value := ""
		if el, ok := doc.First("meta", document.AttrEquals(p.Attr, tag[0]), document.HasAttr("content")); ok {
			value = el.AttrOr("content", "")
		}
		rec.Set(tag[1], value)
	}
	rec.Message = p.Message
	return rec, nil
}

// openGraphPreview reads the Open Graph object with go-opengraph and
// falls back to <title> and the meta description for missing text.
func openGraphPreview(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	og := opengraph.NewOpenGraph()
	if err := og.ProcessHTML(strings.NewReader(string(in.Page.Body))); err != nil {
		return nil, models.NewToolError(models.ErrCodeParseFailure, "Could not parse Open Graph tags.", err)
	}

	image := ""
	if len(og.Images) > 0 {
		image = og.Images[0].URL
		if abs, err := doc.Resolve(image); err == nil && image != "" {
			image = abs.String()
		}
	}

	var missing []string
	for _, f := range []struct{ name, value string }{
		{"og:title", og.Title}, {"og:description", og.Description}, {"og:image", image}, {"og:url", og.URL},
	} {
		if f.value == "" {
			missing = append(missing, f.name)
		}
	}

	fallbackTitle, fallbackDesc := og.Title, og.Description
	if fallbackTitle == "" {
		fallbackTitle = doc.Title()
	}
	if fallbackDesc == "" {
		fallbackDesc, _ = doc.Meta("description")
	}

	return models.NewResult().
		Set("og_title", og.Title).
		Set("og_description", og.Description).
		Set("og_image", image).
		Set("og_url", og.URL).
		Set("og_type", og.Type).
		Set("og_site_name", og.SiteName).
		Set("preview_title", fallbackTitle).
		Set("preview_description", fallbackDesc).
		Set("missing_tags", orEmpty(missing)).
		Messagef("Open Graph preview data ready."), nil
}

type schemaExample struct {
	Kind    string `json:"kind"`
	Type    string `json:"type,omitempty"`
	Snippet string `json:"snippet"`
}

// checkSchemaMarkup looks for schema.org vocabulary in microdata, RDFa and
// JSON-LD.
func checkSchemaMarkup(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	var examples []schemaExample
	microdata, rdfa, jsonld := 0, 0, 0

	for el := range doc.FindAll("", document.AttrContains("itemtype", "schema.org")) {
		microdata++
		examples = append(examples, schemaExample{Kind: "microdata", Type: el.AttrOr("itemtype", ""), Snippet: truncateRunes(el.OuterHTML(), 100)})
	}
	for el := range doc.FindAll("", document.AttrContains("vocab", "schema.org")) {
		rdfa++
		examples = append(examples, schemaExample{Kind: "rdfa", Type: el.AttrOr("typeof", ""), Snippet: truncateRunes(el.OuterHTML(), 100)})
	}
	for el := range doc.FindAll("script", document.AttrEquals("type", "application/ld+json")) {
		body := el.RawText()
		if !strings.Contains(body, "schema.org") {
			continue
		}
		jsonld++
		examples = append(examples, schemaExample{Kind: "json-ld", Snippet: truncateRunes(strings.TrimSpace(body), 100)})
	}

	found := len(examples) > 0
	rec := models.NewResult().
		Set("schema_markup_found", found).
		Set("microdata_count", microdata).
		Set("rdfa_count", rdfa).
		Set("jsonld_count", jsonld).
		Set("examples", orEmpty(head(examples, 3)))
	if found {
		return rec.Messagef("Schema.org markup found."), nil
	}
	return rec.Messagef("No schema.org markup found."), nil
}

type jsonLDError struct {
	Error         string `json:"error"`
	Message       string `json:"message"`
	ScriptContent string `json:"script_content"`
}

// findStructuredData decodes every JSON-LD block. A block that fails to
// decode is reported in place rather than failing the run.
func findStructuredData(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	var (
		blocks  []any
		types   []string
		invalid int
	)
	for el := range doc.FindAll("script", document.AttrEquals("type", "application/ld+json")) {
		raw := el.RawText()
		var data any
		if err := json.Unmarshal([]byte(raw), &data); err != nil {
			invalid++
			blocks = append(blocks, jsonLDError{Error: "JSON Decode Error", Message: err.Error(), ScriptContent: raw})
			continue
		}
		blocks = append(blocks, data)
		types = append(types, jsonLDTypes(data)...)
	}

	rec := models.NewResult().
		Set("block_count", len(blocks)).
		Set("valid_count", len(blocks)-invalid).
		Set("invalid_count", invalid).
		Set("types", orEmpty(types)).
		Set("structured_data", orEmpty(blocks))
	switch {
	case len(blocks) == 0:
		return rec.Messagef("No JSON-LD structured data found on the page."), nil
	case invalid == len(blocks):
		return rec.Messagef("Found %d JSON-LD blocks, but none could be parsed.", len(blocks)), nil
	default:
		return rec.Messagef("Found %d JSON-LD structured data blocks.", len(blocks)), nil
	}
}

// jsonLDTypes collects @type values from an object, an array of objects,
// or a @graph.
func jsonLDTypes(v any) []string {
	var out []string
	switch t := v.(type) {
	case []any:
		for _, item := range t {
			out = append(out, jsonLDTypes(item)...)
		}
	case map[string]any:
		switch typ := t["@type"].(type) {
		case string:
			out = append(out, typ)
		case []any:
			for _, x := range typ {
				if s, ok := x.(string); ok {
					out = append(out, s)
				}
			}
		}
		if graph, ok := t["@graph"]; ok {
			out = append(out, jsonLDTypes(graph)...)
		}
	}
	return out
}

type imageRef struct {
	Src string `json:"src"`
	Alt string `json:"alt"`
}

func checkImageAlts(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	var missing, empty []string
	total := 0
	for img := range doc.FindAll("img") {
		total++
		src := img.AttrOr("src", "")
		alt, ok := img.Attr("alt")
		switch {
		case !ok:
			missing = append(missing, src)
		case strings.TrimSpace(alt) == "":
			empty = append(empty, src)
		}
	}

	return models.NewResult().
		Set("total_images", total).
		Set("missing_alt_count", len(missing)).
		Set("empty_alt_count", len(empty)).
		Set("missing_alt_images", orEmpty(missing)).
		Set("empty_alt_images", orEmpty(empty)).
		Messagef("Out of %d images: %d missing alt, %d have empty alt.", total, len(missing), len(empty)), nil
}

func findMissingAlts(_ context.Context, in Input) (*models.ResultRecord, error) {
	doc, err := needDoc(in)
	if err != nil {
		return nil, err
	}

	var missing []imageRef
	for img := range doc.FindAll("img") {
		alt, ok := img.Attr("alt")
		if !ok || strings.TrimSpace(alt) == "" {
			missing = append(missing, imageRef{Src: img.AttrOr("src", ""), Alt: alt})
		}
	}
	return models.NewResult().
		Set("missing_alt_count", len(missing)).
		Set("missing_images", orEmpty(missing)).
		Messagef("Found %d image(s) missing alt attribute.", len(missing)), nil
}
