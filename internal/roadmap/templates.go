package roadmap

import (
	"sort"
	"strings"
)

// Template is a ready-made roadmap a creator can start from.
type Template struct {
	Key     string `json:"key"`
	Name    string `json:"name"`
	Roadmap string `json:"roadmap"`
}

var templates = map[string]Template{
	"pentest_web": {
		Key:  "pentest_web",
		Name: "Web application pentest",
		Roadmap: `
- Target domain recon and subdomain enumeration (high)
- WAF detection and bypass attempts
- SQL injection tests on login forms (acil)
- XSS (Cross-Site Scripting) vulnerability scan
- Directory brute force (Gobuster/Dirbuster)
- Reporting and documentation
`,
	},
	"pentest_network": {
		Key:  "pentest_network",
		Name: "Network pentest",
		Roadmap: `
- Port scan and service detection with Nmap (high)
- Vulnerability scan (Nessus/OpenVAS)
- Anonymous login checks on SMB and FTP
- Brute-force attack simulation (Hydra)
- Network topology mapping
`,
	},
	"dev_react": {
		Key:  "dev_react",
		Name: "React web app",
		Roadmap: `
- Project setup (Vite + React + Tailwind) (high)
- Backend connection and auth flow
- Database schema design
- Landing page and dashboard design
- Deployment (GitHub Pages)
`,
	},
}

// Templates returns the built-in templates sorted by key.
func Templates() []Template {
	out := make([]Template, 0, len(templates))
	for _, t := range templates {
		t.Roadmap = strings.TrimSpace(t.Roadmap)
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// LookupTemplate returns the template for key.
func LookupTemplate(key string) (Template, bool) {
	t, ok := templates[key]
	if !ok {
		return Template{}, false
	}
	t.Roadmap = strings.TrimSpace(t.Roadmap)
	return t, true
}
