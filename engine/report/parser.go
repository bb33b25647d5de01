// Package report parses raw incident report documents into the four fixed
// sections and extracts per-document header metadata.
package report

import (
	"fmt"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/VSOCLabs/copilot-mvp/engine/domain"
)

// sectionConfig describes the headers that open a section and the headers
// that terminate it.
type sectionConfig struct {
	headers []string
	next    []string
}

// sectionConfigs mirrors the report template used across the incident corpus.
var sectionConfigs = map[domain.SectionType]sectionConfig{
	domain.SectionDescription: {
		headers: []string{"Detailed Incident Description:", "Incident Description:"},
		next: []string{"Impact Assessment:", "Response and Forensic Analysis:",
			"Response:", "Lessons Learned:", "Recommendations:"},
	},
	domain.SectionImpact: {
		headers: []string{"Impact Assessment:", "Impact:"},
		next: []string{"Response and Forensic Analysis:", "Response:",
			"Lessons Learned:", "Recommendations:"},
	},
	domain.SectionResponse: {
		headers: []string{"Response and Forensic Analysis:", "Response:", "Forensic Analysis:"},
		next:    []string{"Lessons Learned:", "Recommendations:"},
	},
	domain.SectionRecommendations: {
		headers: []string{"Lessons Learned:", "Recommendations:"},
		next:    nil,
	},
}

// Header metadata patterns.
var (
	incidentIDRe = regexp.MustCompile(`(?i)Incident ID:\s*([A-Z0-9-]+)`)
	dateRe       = regexp.MustCompile(`(?i)Date of Detection:\s*([0-9]{4}-[0-9]{2}-[0-9]{2}(?:\s+[0-9]{2}:[0-9]{2})?(?:\s+UTC)?)`)
	yearRe       = regexp.MustCompile(`([0-9]{4})`)
	monthRe      = regexp.MustCompile(`[0-9]{4}-([0-9]{2})`)
	vehicleIDRe  = regexp.MustCompile(`(?i)Vehicle ID:\s*([A-Z0-9/-]+)(?:\s*\(([^)]+)\))?`)
	fleetRe      = regexp.MustCompile(`(?i)Fleet:\s*["']([^"']+)["']`)
	threatRe     = regexp.MustCompile(`(?i)Threat Category:\s*([^.\n]+?)(?:\s+Detection Method:|\s+Severity:|\n|$)`)
	detectionRe  = regexp.MustCompile(`(?i)Detection Method:\s*([^.\n]+?)(?:\s+Severity:|\s+Status:|\n|\.)`)
	severityRe   = regexp.MustCompile(`(?i)Severity:\s*([^.\n]+)`)
	statusRe     = regexp.MustCompile(`(?i)Status:\s*([^.\n]+)`)
)

// cleanValue trims whitespace and trailing punctuation from a header value.
func cleanValue(v string) string {
	return strings.TrimRight(strings.TrimSpace(v), ".,;:")
}

// ExtractMetadata pulls structured header metadata out of a raw report.
// Missing fields stay empty; only the incident id gets a fallback (the
// file name without extension).
func ExtractMetadata(text, fileName string) domain.ReportMetadata {
	meta := domain.ReportMetadata{FileName: fileName}

	if m := incidentIDRe.FindStringSubmatch(text); m != nil {
		meta.IncidentID = strings.TrimSpace(m[1])
	} else if fileName != "" {
		base := filepath.Base(fileName)
		meta.IncidentID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	if m := dateRe.FindStringSubmatch(text); m != nil {
		meta.DateOfDetection = strings.TrimSpace(m[1])
		if y := yearRe.FindStringSubmatch(meta.DateOfDetection); y != nil {
			meta.Year = y[1]
		}
		if mo := monthRe.FindStringSubmatch(meta.DateOfDetection); mo != nil {
			meta.Month = mo[1]
		}
	}

	if m := vehicleIDRe.FindStringSubmatch(text); m != nil {
		meta.VehicleID = strings.TrimSpace(m[1])
		if m[2] != "" {
			meta.VehicleNote = strings.TrimSpace(m[2])
		}
	}
	if m := fleetRe.FindStringSubmatch(text); m != nil {
		meta.Fleet = strings.TrimSpace(m[1])
	}
	if m := threatRe.FindStringSubmatch(text); m != nil {
		meta.ThreatCategory = cleanValue(m[1])
	}
	if m := detectionRe.FindStringSubmatch(text); m != nil {
		meta.DetectionMethod = cleanValue(m[1])
	}
	if m := severityRe.FindStringSubmatch(text); m != nil {
		meta.Severity = cleanValue(m[1])
	}
	if m := statusRe.FindStringSubmatch(text); m != nil {
		meta.Status = cleanValue(m[1])
	}

	return meta
}

// ExtractSection pulls one section out of a document: text after the first
// matching header, up to the earliest following next-header. Returns ""
// when no header matches.
func ExtractSection(text string, headers, next []string) string {
	start := -1
	for _, h := range headers {
		if idx := indexFold(text, h); idx != -1 {
			start = idx + len(h)
			break
		}
	}
	if start == -1 {
		return ""
	}

	end := len(text)
	rest := text[start:]
	for _, h := range next {
		if idx := indexFold(rest, h); idx != -1 && start+idx < end {
			end = start + idx
		}
	}
	return strings.TrimSpace(text[start:end])
}

// indexFold is a case-insensitive strings.Index.
func indexFold(s, substr string) int {
	return strings.Index(strings.ToLower(s), strings.ToLower(substr))
}

// Parse splits a raw incident report into sections and metadata. A document
// that yields no recognisable section or incident id fails with
// domain.ErrIngestionParse.
func Parse(text, fileName string) (domain.ParsedReport, error) {
	parsed := domain.ParsedReport{
		Meta:     ExtractMetadata(text, fileName),
		Sections: make(map[domain.SectionType]string),
	}

	for _, st := range domain.SectionTypes {
		cfg := sectionConfigs[st]
		if sec := ExtractSection(text, cfg.headers, cfg.next); sec != "" {
			parsed.Sections[st] = sec
		}
	}

	if err := domain.ValidateParsedReport(parsed); err != nil {
		return domain.ParsedReport{}, fmt.Errorf("report: parse %s: %w", fileName, err)
	}
	return parsed, nil
}
