package rendering

import (
	"sort"
	"strings"
)

// DefaultTheme is used when no theme is requested.
const DefaultTheme = "classic"

const baseCSS = `
body { margin: 0; color: #222; }
.resume { max-width: 800px; margin: 0 auto; padding: 32px; }
h1 { margin: 0 0 4px; }
h2 { margin: 24px 0 8px; padding-bottom: 2px; }
.entry { margin-bottom: 12px; }
.entry-head { display: flex; justify-content: space-between; gap: 8px; }
.dates { color: #666; white-space: nowrap; }
.contact, .label { margin: 2px 0; color: #555; }
ul { margin: 4px 0; padding-left: 20px; }
.addition { font-style: italic; }
@page { size: Letter; margin: 0.5in; }
`

var themes = map[string]string{
	"classic": baseCSS + `
body { font-family: Georgia, "Times New Roman", serif; font-size: 11pt; }
h2 { font-size: 13pt; border-bottom: 1px solid #222; text-transform: uppercase; letter-spacing: 0.05em; }
`,
	"modern": baseCSS + `
body { font-family: "Helvetica Neue", Arial, sans-serif; font-size: 10.5pt; }
h1 { color: #1f4e79; }
h2 { font-size: 12pt; color: #1f4e79; border-bottom: 2px solid #1f4e79; }
`,
	"compact": baseCSS + `
body { font-family: Arial, sans-serif; font-size: 9.5pt; }
.resume { padding: 16px; }
h2 { font-size: 11pt; margin: 12px 0 4px; border-bottom: 1px solid #999; }
.entry { margin-bottom: 6px; }
`,
}

// Themes lists the available theme names.
func Themes() []string {
	names := make([]string, 0, len(themes))
	for name := range themes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// themeCSS returns the stylesheet for a theme name, case-insensitively.
func themeCSS(theme string) (string, bool) {
	if strings.TrimSpace(theme) == "" {
		theme = DefaultTheme
	}
	css, ok := themes[strings.ToLower(strings.TrimSpace(theme))]
	return css, ok
}
