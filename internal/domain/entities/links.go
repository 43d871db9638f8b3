package entities

import (
	"net/url"
	"strings"
)

// LinkKind classifies the resource a note links to, derived from its URL.
type LinkKind string

const (
	LinkKindText       LinkKind = "Text"
	LinkKindNotion     LinkKind = "Notion"
	LinkKindDrive      LinkKind = "Drive"
	LinkKindGoogleDoc  LinkKind = "Google Doc"
	LinkKindSheet      LinkKind = "Google Sheet"
	LinkKindSlide      LinkKind = "Google Slide"
	LinkKindYoutube    LinkKind = "Youtube"
	LinkKindGitHub     LinkKind = "GitHub"
	LinkKindFigma      LinkKind = "Figma"
	LinkKindPDF        LinkKind = "PDF"
	LinkKindWord       LinkKind = "Word"
	LinkKindExcel      LinkKind = "Excel"
	LinkKindPowerPoint LinkKind = "PowerPoint"
	LinkKindArchive    LinkKind = "Archive"
	LinkKindImage      LinkKind = "Image"
	LinkKindLink       LinkKind = "Link"
)

// DetectLinkKind maps a note URL to its resource kind. Notes without a URL
// are plain text; unparseable URLs degrade to the generic link kind.
func DetectLinkKind(rawurl string) LinkKind {
	if rawurl == "" {
		return LinkKindText
	}
	u, err := url.Parse(rawurl)
	if err != nil || u.Hostname() == "" {
		return LinkKindLink
	}
	host := strings.ToLower(u.Hostname())
	path := strings.ToLower(u.Path)

	switch {
	case strings.Contains(host, "notion.so"):
		return LinkKindNotion
	case strings.Contains(host, "drive.google.com"):
		return LinkKindDrive
	case strings.Contains(host, "docs.google.com"):
		switch {
		case strings.Contains(path, "/spreadsheets/"):
			return LinkKindSheet
		case strings.Contains(path, "/presentation/"):
			return LinkKindSlide
		default:
			return LinkKindGoogleDoc
		}
	case strings.Contains(host, "youtube.com"), strings.Contains(host, "youtu.be"):
		return LinkKindYoutube
	case strings.Contains(host, "github.com"):
		return LinkKindGitHub
	case strings.Contains(host, "figma.com"):
		return LinkKindFigma
	}

	switch {
	case strings.HasSuffix(path, ".pdf"):
		return LinkKindPDF
	case hasAnySuffix(path, ".doc", ".docx"):
		return LinkKindWord
	case hasAnySuffix(path, ".xls", ".xlsx", ".csv"):
		return LinkKindExcel
	case hasAnySuffix(path, ".ppt", ".pptx"):
		return LinkKindPowerPoint
	case hasAnySuffix(path, ".zip", ".rar", ".7z"):
		return LinkKindArchive
	case hasAnySuffix(path, ".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"):
		return LinkKindImage
	}

	return LinkKindLink
}

func hasAnySuffix(s string, suffixes ...string) bool {
	for _, suffix := range suffixes {
		if strings.HasSuffix(s, suffix) {
			return true
		}
	}
	return false
}

const (
	pdfIconURL       = "https://upload.wikimedia.org/wikipedia/commons/8/87/PDF_file_icon.svg"
	fallbackCoverURL = "https://ui-avatars.com/api/?name=Link&background=random"
)

// LinkMetadata is a title and cover image derived from a note URL.
type LinkMetadata struct {
	Title string
	Image string
}

// MetadataFromURL derives a display title and cover image for a linked
// resource: title-cased filename plus a standard icon for PDFs, a
// domain-derived name plus a high-resolution favicon for everything else.
// Parse failure degrades to a generic label and fallback image.
func MetadataFromURL(rawurl string) LinkMetadata {
	if !strings.HasPrefix(rawurl, "http") {
		rawurl = "https://" + rawurl
	}
	u, err := url.Parse(rawurl)
	if err != nil || u.Hostname() == "" {
		return LinkMetadata{Title: "New Resource", Image: fallbackCoverURL}
	}

	host := u.Hostname()
	path := u.Path

	if strings.HasSuffix(strings.ToLower(path), ".pdf") {
		parts := strings.Split(path, "/")
		filename := strings.TrimSuffix(parts[len(parts)-1], ".pdf")
		filename = strings.TrimSuffix(filename, ".PDF")
		if decoded, err := url.PathUnescape(filename); err == nil {
			filename = decoded
		}
		filename = strings.NewReplacer("-", " ", "_", " ").Replace(filename)
		return LinkMetadata{Title: titleCase(filename), Image: pdfIconURL}
	}

	domain := strings.TrimPrefix(host, "www.")
	name := strings.SplitN(domain, ".", 2)[0]

	// Well-known sites whose first domain label is not a usable name.
	switch {
	case strings.Contains(host, "gemini.google.com"):
		name = "Gemini"
	case strings.Contains(host, "chatgpt.com"):
		name = "ChatGPT"
	case strings.Contains(host, "docs.google.com"):
		name = "Google Docs"
	case strings.Contains(host, "drive.google.com"):
		name = "Google Drive"
	case strings.Contains(host, "youtube.com"):
		name = "YouTube"
	case strings.Contains(host, "notion.so"):
		name = "Notion"
	}

	if name != "" {
		name = strings.ToUpper(name[:1]) + name[1:]
	}

	return LinkMetadata{
		Title: name,
		Image: "https://www.google.com/s2/favicons?domain=" + host + "&sz=128",
	}
}

// titleCase uppercases the first letter of every word.
func titleCase(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}
