package generator

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ternarybob/seoforge/internal/models"
)

const (
	defaultTitleMaxChars       = 70
	defaultDescriptionMaxChars = 160
	noContextText              = "No specific row data provided"
)

// TopicResolver returns the profile to use for a topic and optional custom instructions
type TopicResolver interface {
	Resolve(topic, custom string) models.TopicProfile
}

// Prompt is the provider-agnostic pair of instructions sent to a model
type Prompt struct {
	System string
	User   string
}

// BuildPrompt assembles the system instruction and user prompt for one item
func BuildPrompt(req *models.GenerationRequest, profile models.TopicProfile) Prompt {
	return Prompt{
		System: buildSystemInstruction(req, profile),
		User:   buildUserPrompt(req, profile),
	}
}

func formatName(f models.OutputFormat) string {
	if f.Normalize() == models.OutputFormatHTML {
		return "HTML"
	}
	return "Markdown"
}

func limitSuffix(prefix string, n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf(" (%s%d characters)", prefix, n)
}

func buildSystemInstruction(req *models.GenerationRequest, profile models.TopicProfile) string {
	limits := profile.Limits
	format := formatName(profile.OutputFormat)
	language := req.Language

	var b strings.Builder
	fmt.Fprintf(&b, "You are a %s and a Native %s speaker.\n", profile.Identity, language)
	fmt.Fprintf(&b, "Your goal is to provide ultra-premium, \"water-free\" content in %s format.\n\n", format)

	b.WriteString("CRITICAL OUTPUT STRUCTURE (JSON):\n{\n")
	fmt.Fprintf(&b, "  \"slug\": \"SEO-friendly-slug\",\n")
	fmt.Fprintf(&b, "  \"name\": \"Service/Brand Name\",\n")
	fmt.Fprintf(&b, "  \"title\": \"Meta Title (max %d chars)\",\n", defaultTitleMaxChars)
	fmt.Fprintf(&b, "  \"description\": \"Meta Description (max %d chars)\",\n", defaultDescriptionMaxChars)
	fmt.Fprintf(&b, "  \"keywords\": \"10 specific high-freq keywords\",\n")
	fmt.Fprintf(&b, "  \"h1\": \"Main Landing Header%s\",\n", limitSuffix("strictly up to ", limits.H1MaxChars))
	fmt.Fprintf(&b, "  \"excerpt\": \"Marketing lead paragraph%s\",\n", limitSuffix("strictly up to ", limits.ExcerptMaxChars))
	fmt.Fprintf(&b, "  \"text\": \"%s\",\n", textDescription(req, profile))
	fmt.Fprintf(&b, "  \"faq\": \"Markdown formatted FAQ section%s, use ### for questions\"\n", limitSuffix("target ~", limits.FAQTargetChars))
	b.WriteString("}\n\n")

	b.WriteString("Formatting Rules:\n")
	fmt.Fprintf(&b, "- Language: Perfect Native %s.\n", language)
	b.WriteString("- No filler: Zero fluff.\n")
	if profile.OutputFormat.Normalize() == models.OutputFormatHTML {
		b.WriteString("- The \"text\" field must be clean semantic HTML (no <html>, <head> or <body> wrappers).\n")
		b.WriteString("- The \"faq\" field must be in Markdown.\n")
	} else {
		b.WriteString("- Both \"text\" and \"faq\" fields must be in Markdown.\n")
	}
	if profile.RequireJSONLD {
		b.WriteString("- The \"text\" field must end with a <script type=\"application/ld+json\"> block describing the page.\n")
	}
	b.WriteString("- DO NOT include lsi_keywords in the response.\n")
	b.WriteString("- Respond with the JSON object only.\n")

	if instructions := strings.TrimSpace(profile.Instructions); instructions != "" {
		b.WriteString("\n")
		b.WriteString(instructions)
		b.WriteString("\n")
	}

	b.WriteString("\nSLUG RULE: ")
	if hint := strings.TrimSpace(req.SlugHint); hint != "" {
		fmt.Fprintf(&b, "STRICTLY use %q as the \"slug\" value.\n", hint)
	} else {
		b.WriteString("Generate a unique SEO-friendly URL slug.\n")
	}

	return b.String()
}

func textDescription(req *models.GenerationRequest, profile models.TopicProfile) string {
	parts := []string{fmt.Sprintf("Full %s article", formatName(profile.OutputFormat))}
	if words := targetWords(req, profile); words > 0 {
		parts = append(parts, fmt.Sprintf("%d+ words", words))
	}
	if profile.Limits.MinTables > 0 {
		parts = append(parts, fmt.Sprintf("Include %d+ professional tables", profile.Limits.MinTables))
	}
	return strings.Join(parts, ". ")
}

// targetWords prefers the run's target length over the topic minimum
func targetWords(req *models.GenerationRequest, profile models.TopicProfile) int {
	if req.TargetLength > 0 {
		return req.TargetLength
	}
	return profile.Limits.MinWords
}

func buildUserPrompt(req *models.GenerationRequest, profile models.TopicProfile) string {
	limits := profile.Limits

	var b strings.Builder
	fmt.Fprintf(&b, "Generate massive expert SEO data for: %q.\n", req.Keyword)
	if limits.H1MaxChars > 0 {
		fmt.Fprintf(&b, "H1: max %d chars.\n", limits.H1MaxChars)
	}
	if limits.ExcerptMaxChars > 0 {
		fmt.Fprintf(&b, "Excerpt: max %d chars.\n", limits.ExcerptMaxChars)
	}
	if words := targetWords(req, profile); words > 0 {
		fmt.Fprintf(&b, "Text: %s, %d+ words.\n", formatName(profile.OutputFormat), words)
	} else {
		fmt.Fprintf(&b, "Text: %s.\n", formatName(profile.OutputFormat))
	}
	if limits.FAQTargetChars > 0 {
		fmt.Fprintf(&b, "FAQ: Markdown strictly ~%d chars.\n", limits.FAQTargetChars)
	}
	fmt.Fprintf(&b, "Context: %s.\n", contextJSON(req.Context))
	fmt.Fprintf(&b, "Professional %s, no water.", req.Language)

	return b.String()
}

func contextJSON(ctx models.RowContext) string {
	if len(ctx) == 0 {
		return noContextText
	}
	data, err := json.Marshal(ctx)
	if err != nil {
		return noContextText
	}
	return string(data)
}
