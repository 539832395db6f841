package analyzer

import (
	"github.com/use-agent/pagelens/content"
	"github.com/use-agent/pagelens/models"
)

// CapabilityWhois names the optional WHOIS capability.
const CapabilityWhois = "whois"

func urlTool(id, name, desc string, cat models.Category, a Analyzer) Tool {
	return Tool{
		Descriptor: models.ToolDescriptor{ID: id, DisplayName: name, Description: desc, Category: cat, InputKind: models.InputURL, Fetch: true},
		Analyzer:   a,
	}
}

// probeTool takes a URL but does its own request.
func probeTool(id, name, desc string, cat models.Category, a Analyzer) Tool {
	t := urlTool(id, name, desc, cat, a)
	t.Descriptor.Fetch = false
	return t
}

func textTool(id, name, desc string, cat models.Category, a Analyzer) Tool {
	return Tool{
		Descriptor: models.ToolDescriptor{ID: id, DisplayName: name, Description: desc, Category: cat, InputKind: models.InputRawText},
		Analyzer:   a,
	}
}

func compoundTool(id, name, desc string, cat models.Category, fetch bool, fields []models.FieldSpec, a Analyzer) Tool {
	return Tool{
		Descriptor: models.ToolDescriptor{ID: id, DisplayName: name, Description: desc, Category: cat, InputKind: models.InputCompound, Fetch: fetch, Fields: fields},
		Analyzer:   a,
	}
}

func required(name, desc string) models.FieldSpec {
	return models.FieldSpec{Name: name, Required: true, Description: desc}
}

func optional(name, desc string) models.FieldSpec {
	return models.FieldSpec{Name: name, Description: desc}
}

// Catalog returns every tool in display order, wired to deps.
func Catalog(deps Deps) []Tool {
	deps.defaults()
	d := &deps
	extractor := content.NewExtractor()

	domainAgeTool := textTool("domain-age", "Domain Age Checker",
		"Looks up the domain's WHOIS creation date and computes its age.",
		models.CategoryTechnical, domainAge(d))
	domainAgeTool.Descriptor.Requires = []string{CapabilityWhois}

	return []Tool{
		// Meta/Tags
		urlTool("meta-title-length", "Meta Title Length Checker",
			"Checks that the page title is 30-60 characters long.",
			models.CategoryMetaTags, LengthCheck{Field: "title", Subject: "Title", Min: 30, Max: 60, Placeholder: "No title found", Extract: pageTitle}),
		urlTool("meta-description-length", "Meta Description Length Checker",
			"Checks that the meta description is 120-155 characters long.",
			models.CategoryMetaTags, LengthCheck{Field: "description", Subject: "Meta description", Min: 120, Max: 155, Placeholder: "No meta description found", Extract: metaDescription}),
		urlTool("canonical-tag", "Canonical Tag Checker",
			"Finds the canonical link and whether it points at the page itself.",
			models.CategoryMetaTags, Func(checkCanonical)),
		urlTool("h1-extractor", "H1 Tag Extractor",
			"Lists every H1 heading on the page.",
			models.CategoryMetaTags, Func(extractH1)),
		urlTool("heading-structure", "Heading Tag Structure Analyzer",
			"Counts H1-H6 headings and flags missing H1s and skipped levels.",
			models.CategoryMetaTags, Func(analyzeHeadings)),
		urlTool("social-meta-tags", "Social Meta Tag Extractor",
			"Collects Open Graph and Twitter Card meta tags.",
			models.CategoryMetaTags, Func(extractSocialMeta)),
		urlTool("mobile-viewport", "Mobile Responsive Check",
			"Checks for a viewport meta tag using the device width.",
			models.CategoryMetaTags, Func(checkViewport)),

		// Content
		urlTool("word-count", "Word Count Checker",
			"Counts the words in the page's visible text.",
			models.CategoryContent, Func(countPageWords)),
		urlTool("readability-score", "Readability Score Calculator",
			"Computes Flesch reading ease and Flesch-Kincaid grade of the visible text.",
			models.CategoryContent, Func(scoreReadability)),
		urlTool("image-alt-checker", "Image Alt Tag Checker",
			"Reports images with a missing or empty alt attribute.",
			models.CategoryContent, Func(checkImageAlts)),
		urlTool("alt-missing-finder", "Alt Tag Missing Finder",
			"Lists every image without usable alt text.",
			models.CategoryContent, Func(findMissingAlts)),
		compoundTool("content-extractor", "Main Content Extractor",
			"Extracts the readable article body as markdown, html or text.",
			models.CategoryContent, true, []models.FieldSpec{
				required("url", "Page to extract"),
				optional("mode", "readability, raw, pruning or auto"),
				optional("format", "markdown, html or text"),
			}, extractContent(extractor)),
		compoundTool("duplicate-content", "Duplicate Content Checker",
			"Compares two pages by text and markup fingerprints.",
			models.CategoryContent, true, []models.FieldSpec{
				required("url", "First page"),
				required("compare_url", "Page to compare against"),
			}, duplicateContent(d)),

		// Keywords
		compoundTool("keyword-density", "Keyword Density Calculator",
			"Computes how often a keyword appears, or the ten most frequent words.",
			models.CategoryKeywords, true, []models.FieldSpec{
				required("url", "Page to analyze"),
				optional("keyword", "Keyword to measure"),
			}, Func(keywordDensity)),
		compoundTool("keyword-position", "Keyword Position Estimator",
			"Lists the zero-based word positions where a keyword appears.",
			models.CategoryKeywords, true, []models.FieldSpec{
				required("keyword", "Keyword to find"),
				required("url", "Page to analyze"),
			}, Func(keywordPosition)),
		urlTool("word-frequency", "Word Frequency Counter",
			"Lists the twenty most frequent words on the page.",
			models.CategoryKeywords, Func(wordFrequency)),
		textTool("text-to-keywords", "Text to Keyword Generator",
			"Extracts the most frequent non-stopword keywords from text.",
			models.CategoryKeywords, Func(textToKeywords)),
		textTool("keyword-suggestions", "Keyword Suggestions from Related Words",
			"Suggests related keywords from a static table.",
			models.CategoryKeywords, Func(keywordSuggestions)),
		textTool("keyword-case-converter", "Keyword Case Converter",
			"Converts a keyword to lower, upper, title, snake, kebab and camel case.",
			models.CategoryKeywords, Func(convertCase)),

		// Links
		urlTool("internal-links", "Internal Link Counter",
			"Counts unique links pointing at the page's own host.",
			models.CategoryLinks, LinkCounter{SampleSize: 10}),
		urlTool("external-links", "External Link Counter",
			"Counts unique links pointing at other hosts.",
			models.CategoryLinks, LinkCounter{External: true, SampleSize: 10}),
		urlTool("anchor-text", "Anchor Text Analyzer",
			"Classifies link text as empty, generic, branded or descriptive.",
			models.CategoryLinks, Func(analyzeAnchors)),
		urlTool("broken-links", "Broken Link Checker",
			"Checks every http(s) link on the page for error responses.",
			models.CategoryLinks, brokenLinks(d)),
		probeTool("redirect-chain", "Link Redirect Checker",
			"Follows redirects and reports every hop.",
			models.CategoryLinks, redirectChain(d)),

		// Technical
		probeTool("robots-txt", "Robots.txt Fetcher & Parser",
			"Fetches and parses the site's robots.txt.",
			models.CategoryTechnical, robotsTxt(d)),
		probeTool("sitemap-xml", "Sitemap.xml Fetcher & Validator",
			"Fetches /sitemap.xml and lists its URLs. When it is missing, robots.txt and its first Sitemap entry are also fetched, so a check can take up to three requests.",
			models.CategoryTechnical, sitemapXML(d)),
		urlTool("favicon", "Favicon Checker",
			"Finds declared favicons and checks that they load.",
			models.CategoryTechnical, checkFavicon(d)),
		probeTool("status-code", "Page Status Code Checker",
			"Reports the HTTP status code of the page.",
			models.CategoryTechnical, statusCode(d)),
		urlTool("structured-data", "Structured Data (JSON-LD) Finder",
			"Decodes every JSON-LD block on the page.",
			models.CategoryTechnical, Func(findStructuredData)),
		urlTool("schema-markup", "Schema Markup Presence Checker",
			"Detects schema.org microdata, RDFa and JSON-LD.",
			models.CategoryTechnical, Func(checkSchemaMarkup)),
		domainAgeTool,
		probeTool("url-slug", "URL Slug Optimizer",
			"Reviews the URL path for slug best practices.",
			models.CategoryTechnical, Func(optimizeSlug)),

		// Performance
		probeTool("page-load-time", "Page Load Time Tester",
			"Measures how long the page's HTML takes to download.",
			models.CategoryPerformance, pageLoadTime(d)),
		textTool("css-minifier", "CSS Minifier",
			"Minifies CSS.",
			models.CategoryPerformance, TextTransform{Lang: "css", Label: "CSS", MediaType: mediaCSS, Fallback: regexMinifyCSS}),
		textTool("html-minifier", "HTML Minifier",
			"Minifies HTML.",
			models.CategoryPerformance, TextTransform{Lang: "html", Label: "HTML", MediaType: mediaHTML, Fallback: regexMinifyHTML}),
		textTool("js-minifier", "JS Minifier",
			"Minifies JavaScript.",
			models.CategoryPerformance, TextTransform{Lang: "js", Label: "JS", MediaType: mediaJS, Fallback: regexMinifyJS}),

		// Preview
		compoundTool("serp-preview", "SERP Preview Simulator",
			"Shows how a title, description and URL appear in search results.",
			models.CategoryPreview, false, []models.FieldSpec{
				required("title", "Page title"),
				required("description", "Meta description"),
				required("url", "Page URL"),
			}, Func(serpPreview)),
		urlTool("open-graph-preview", "Open Graph Preview",
			"Reads the page's Open Graph object for a share preview.",
			models.CategoryPreview, Func(openGraphPreview)),
		urlTool("twitter-card-preview", "Twitter Card Preview",
			"Reads the page's Twitter Card tags.",
			models.CategoryPreview, MetaPreview{
				Attr: "name",
				Tags: [][2]string{
					{"twitter:title", "twitter_title"},
					{"twitter:description", "twitter_description"},
					{"twitter:image", "twitter_image"},
					{"twitter:card", "twitter_card"},
				},
				Message: "Twitter Card preview data ready.",
			}),

		// Utility
		textTool("email-obfuscator", "Email Obfuscator Generator",
			"Rewrites an email address in text and HTML-entity forms.",
			models.CategoryUtility, Func(obfuscateEmail)),
		textTool("backlink-parser", "Backlink List Parser",
			"Summarizes a backlink CSV export by domain.",
			models.CategoryUtility, Func(parseBacklinks)),
		textTool("youtube-tags", "YouTube Video Tag Extractor",
			"Extracts og:video:tag values from YouTube page source.",
			models.CategoryUtility, Func(youtubeTags)),
	}
}
