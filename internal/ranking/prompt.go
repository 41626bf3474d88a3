package ranking

import (
	_ "embed"
	"fmt"
	"strconv"
	"strings"

	"github.com/spigell/match-ranker/internal/matching"
)

//go:embed prompt.md
var promptTemplate string

// MaxFieldRunes bounds free-text fields placed into the prompt.
const MaxFieldRunes = 250

var tasks = map[matching.Kind]string{
	matching.KindJobs:       "Rank the open vacancies below by how well they fit the job seeker.",
	matching.KindCandidates: "Rank the candidates below by how well they fit the vacancy.",
}

// BuildPrompt renders the profile and the snapshot into a single instruction
// block. Items are labelled by 1-based ordinal; their identifiers are never
// included.
func BuildPrompt(kind matching.Kind, profile *matching.Profile, snapshot matching.Snapshot) string {
	task, ok := tasks[kind]
	if !ok {
		task = tasks[matching.KindJobs]
	}

	var items strings.Builder
	for i := 0; i < snapshot.Len(); i++ {
		if i > 0 {
			items.WriteString("\n")
		}
		writeItem(&items, i+1, snapshot.At(i))
	}

	replacer := strings.NewReplacer(
		"{{TASK}}", task,
		"{{PROFILE}}", renderProfile(profile),
		"{{COUNT}}", strconv.Itoa(snapshot.Len()),
		"{{ITEMS}}", items.String(),
	)

	return replacer.Replace(promptTemplate)
}

func renderProfile(p *matching.Profile) string {
	if p == nil {
		return "- (no profile data)"
	}

	var b strings.Builder
	writeField(&b, "", "Title", p.Title)
	writeField(&b, "", "Skills", joinSkills(p.Skills))
	writeField(&b, "", "Experience", truncate(p.Experience))
	writeField(&b, "", "Education", truncate(p.Education))
	writeField(&b, "", "About", truncate(p.Bio))

	if b.Len() == 0 {
		return "- (no profile data)"
	}
	return strings.TrimRight(b.String(), "\n")
}

func writeItem(b *strings.Builder, ordinal int, item matching.ListingItem) {
	fmt.Fprintf(b, "Item %d:\n", ordinal)
	writeField(b, "  ", "Title", singleLine(item.Title))
	writeField(b, "  ", "Skills", joinSkills(item.Skills))
	writeField(b, "  ", "Description", truncate(item.Description))
	writeField(b, "  ", "Requirements", truncate(item.Requirements))
	writeField(b, "  ", "Experience", truncate(item.Experience))
	writeField(b, "  ", "Education", truncate(item.Education))
}

func writeField(b *strings.Builder, indent, name, value string) {
	if value == "" {
		return
	}
	fmt.Fprintf(b, "%s- %s: %s\n", indent, name, value)
}

func joinSkills(skills []string) string {
	cleaned := make([]string, 0, len(skills))
	for _, s := range skills {
		if s = singleLine(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	return strings.Join(cleaned, ", ")
}

// truncate flattens whitespace and cuts the text to MaxFieldRunes.
func truncate(s string) string {
	s = singleLine(s)
	runes := []rune(s)
	if len(runes) <= MaxFieldRunes {
		return s
	}
	return strings.TrimSpace(string(runes[:MaxFieldRunes])) + "..."
}

func singleLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
