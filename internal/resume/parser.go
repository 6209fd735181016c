// Package resume extracts a structured candidate profile from resume text.
package resume

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"github.com/jonathan/outreach-copilot/internal/types"
)

// ErrorKind classifies resume parsing failures.
type ErrorKind string

// Resume parsing failure kinds.
const (
	KindNotFound          ErrorKind = "not_found"
	KindUnsupportedFormat ErrorKind = "unsupported_format"
	KindUnreadable        ErrorKind = "unreadable"
)

// ParseError is a typed resume parsing failure.
type ParseError struct {
	Kind    ErrorKind
	Path    string
	Message string
	Cause   error
}

func (e *ParseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("resume %s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("resume %s: %s", e.Kind, e.Message)
}

func (e *ParseError) Unwrap() error {
	return e.Cause
}

// MinTextLength is the minimum extracted text length for a usable resume.
const MinTextLength = 50

// commonSkills is the dictionary of skills the parser recognizes, all
// lowercase. Multi-word entries are matched as whole phrases.
var commonSkills = []string{
	"python", "java", "javascript", "typescript", "react", "node.js", "angular",
	"vue", "docker", "kubernetes", "aws", "azure", "gcp", "sql", "nosql",
	"mongodb", "postgresql", "mysql", "redis", "git", "ci/cd", "jenkins",
	"machine learning", "deep learning", "nlp", "computer vision", "tensorflow",
	"pytorch", "scikit-learn", "pandas", "numpy", "rest", "api", "graphql",
	"microservices", "agile", "scrum", "jira", "linux", "bash", "shell",
	"html", "css", "sass", "tailwind", "bootstrap", "django", "flask",
	"fastapi", "spring", "express", "go", "rust", "c++", "c#", ".net",
	"swift", "kotlin", "android", "ios", "flutter", "react native",
	"data analysis", "data science", "statistics", "matlab",
	"tableau", "power bi", "spark", "hadoop", "kafka", "airflow",
	"terraform", "ansible", "blockchain", "solidity", "langchain",
}

var experienceKeywords = []string{
	"experience", "work history", "employment", "professional experience",
	"work experience", "career history", "positions held",
}

var educationKeywords = []string{
	"education", "academic", "degree", "university", "college",
	"bachelor", "master", "phd", "certification", "graduated",
}

var degreeKeywords = []string{"bachelor", "master", "phd", "b.s", "m.s", "b.a", "m.a"}

var (
	emailPattern = regexp.MustCompile(`\b[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,}\b`)
	yearPattern  = regexp.MustCompile(`\d{4}`)

	phonePatterns = []*regexp.Regexp{
		regexp.MustCompile(`\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
		regexp.MustCompile(`\+?\d{1,3}[-.\s]?\(?\d{3}\)?[-.\s]?\d{3}[-.\s]?\d{4}`),
	}

	nameRejectPattern = regexp.MustCompile(`[@\d]`)
)

// Parser extracts structured resume data. The zero value is not usable;
// construct with NewParser.
type Parser struct {
	skillPatterns map[string]*regexp.Regexp
}

// NewParser creates a Parser. Custom skills extend the built-in dictionary.
func NewParser(customSkills ...string) *Parser {
	p := &Parser{skillPatterns: make(map[string]*regexp.Regexp, len(commonSkills)+len(customSkills))}
	for _, skill := range commonSkills {
		p.addSkill(skill)
	}
	for _, skill := range customSkills {
		p.addSkill(strings.ToLower(skill))
	}
	return p
}

func (p *Parser) addSkill(skill string) {
	if _, ok := p.skillPatterns[skill]; ok {
		return
	}
	// \b does not sit well next to symbols like "c++"; anchor on
	// non-word context instead.
	p.skillPatterns[skill] = regexp.MustCompile(`(^|[^a-z0-9])` + regexp.QuoteMeta(skill) + `($|[^a-z0-9+#])`)
}

// ParseFile reads a resume file and extracts a profile. Only plain-text
// resumes are supported; binary formats report unsupported_format.
func (p *Parser) ParseFile(path string) (*types.ResumeProfile, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, &ParseError{Kind: KindNotFound, Path: path, Message: fmt.Sprintf("resume file not found: %s", path)}
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".txt", ".md", "":
	default:
		return nil, &ParseError{
			Kind:    KindUnsupportedFormat,
			Path:    path,
			Message: fmt.Sprintf("unsupported resume format %q, use plain text", ext),
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ParseError{Kind: KindUnreadable, Path: path, Message: "failed to read resume file", Cause: err}
	}

	return p.ParseText(string(data))
}

// ParseText extracts a profile from raw resume text.
func (p *Parser) ParseText(text string) (*types.ResumeProfile, error) {
	if len(strings.TrimSpace(text)) < MinTextLength {
		return nil, &ParseError{Kind: KindUnreadable, Message: "resume text is too short or empty"}
	}

	return &types.ResumeProfile{
		RawText:    text,
		Name:       extractName(text),
		Email:      extractEmail(text),
		Phone:      extractPhone(text),
		Skills:     p.extractSkills(text),
		Experience: extractSection(text, experienceKeywords, educationKeywords, 10, yearLineFilter),
		Education:  extractSection(text, educationKeywords, nil, 5, degreeLineFilter),
	}, nil
}

func (p *Parser) extractSkills(text string) []string {
	lower := strings.ToLower(text)

	var found []string
	for skill, pattern := range p.skillPatterns {
		if pattern.MatchString(lower) {
			found = append(found, titleCase(skill))
		}
	}

	sort.Strings(found)
	return found
}

// yearLineFilter keeps lines that carry a year (role headers) and folds
// follow-on lines into the previous entry.
func yearLineFilter(line string, entries []string) ([]string, bool) {
	if yearPattern.MatchString(line) {
		return append(entries, line), true
	}
	if len(entries) > 0 {
		entries[len(entries)-1] += " " + line
	}
	return entries, true
}

// degreeLineFilter keeps degree lines and folds year lines into the
// previous entry.
func degreeLineFilter(line string, entries []string) ([]string, bool) {
	lower := strings.ToLower(line)
	for _, deg := range degreeKeywords {
		if strings.Contains(lower, deg) {
			return append(entries, line), true
		}
	}
	if yearPattern.MatchString(line) && len(entries) > 0 {
		entries[len(entries)-1] += " " + line
	}
	return entries, true
}

// extractSection captures lines between a section header containing one of
// startKeywords and the next header containing one of stopKeywords.
func extractSection(text string, startKeywords, stopKeywords []string, limit int, filter func(string, []string) ([]string, bool)) []string {
	var entries []string
	capturing := false

	for _, line := range strings.Split(text, "\n") {
		lower := strings.ToLower(line)

		if !capturing {
			if containsAny(lower, startKeywords) {
				capturing = true
			}
			continue
		}

		if containsAny(lower, stopKeywords) {
			break
		}

		trimmed := strings.TrimSpace(line)
		if len(trimmed) <= 10 {
			continue
		}

		entries, _ = filter(trimmed, entries)
	}

	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func extractEmail(text string) string {
	return emailPattern.FindString(text)
}

func extractPhone(text string) string {
	for _, pattern := range phonePatterns {
		if m := pattern.FindString(text); m != "" {
			return m
		}
	}
	return ""
}

// extractName assumes the candidate name is the first short, digit-free
// line of the resume.
func extractName(text string) string {
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if len(strings.Fields(line)) <= 4 && len(line) < 50 && !nameRejectPattern.MatchString(line) {
			return line
		}
		return ""
	}
	return ""
}

func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		if len(w) > 0 && w[0] >= 'a' && w[0] <= 'z' {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}
