package trafficsim

import (
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"
)

var (
	paths = []string{"/", "/about", "/projects", "/projects/footprint", "/skills", "/contact", "/blog"}

	userAgents = []string{
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 14_1) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.1 Safari/605.1.15",
		"Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
		"Mozilla/5.0 (iPhone; CPU iPhone OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148",
		"Mozilla/5.0 (Linux; Android 14; Pixel 8) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Mobile Safari/537.36",
		"Mozilla/5.0 (iPad; CPU OS 17_1 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Mobile/15E148",
	}

	referrers = []string{"", "", "https://www.google.com/", "https://www.linkedin.com/", "https://github.com/", "https://news.ycombinator.com/"}

	sections = []string{"hero", "about", "projects", "skills", "contact"}
	skills   = []string{"go", "postgres", "kubernetes", "typescript"}
	contacts = []string{"email", "linkedin", "github"}
)

// Visit is everything one simulated visitor sends.
type Visit struct {
	IP        string
	UserAgent string
	Referrer  string
	SessionID string
	Screen    Screen
	Pages     []string
	Events    []Event
	Samples   []Sample
}

// Screen is the visitor's viewport.
type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Event is an event beacon body.
type Event struct {
	Name      string         `json:"name"`
	Data      map[string]any `json:"data"`
	Path      string         `json:"path"`
	SessionID string         `json:"sessionId"`
}

// Sample is one heatmap sample of a heatmap beacon.
type Sample struct {
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
	Type string  `json:"type"`
	Path string  `json:"path"`
}

// Generator builds reproducible visits from a seed.
type Generator struct {
	rnd *rand.Rand
}

// NewGenerator returns a generator. Equal seeds give equal visits.
func NewGenerator(seed uint64) *Generator {
	return &Generator{rnd: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Visits generates n visitors with up to maxPages page views each.
func (g *Generator) Visits(n, maxPages int) []Visit {
	if maxPages < 1 {
		maxPages = 1
	}
	out := make([]Visit, n)
	for i := range out {
		out[i] = g.visit(i, maxPages)
	}
	return out
}

func (g *Generator) visit(i, maxPages int) Visit {
	v := Visit{
		// One private address per visitor.
		IP:        fmt.Sprintf("10.%d.%d.%d", i>>16&0xff, i>>8&0xff, i&0xff),
		UserAgent: pick(g.rnd, userAgents),
		Referrer:  pick(g.rnd, referrers),
		SessionID: uuid.NewString(),
		Screen:    Screen{Width: 360 + g.rnd.IntN(1600), Height: 640 + g.rnd.IntN(600)},
	}

	pages := 1 + g.rnd.IntN(maxPages)
	for p := 0; p < pages; p++ {
		path := pick(g.rnd, paths)
		v.Pages = append(v.Pages, path)
		v.Events = append(v.Events, g.event(path, v.SessionID))
		for s := g.rnd.IntN(4); s > 0; s-- {
			v.Samples = append(v.Samples, g.sample(path))
		}
	}
	return v
}

func (g *Generator) event(path, session string) Event {
	ev := Event{Path: path, SessionID: session}
	switch g.rnd.IntN(6) {
	case 0:
		ev.Name = "section_view"
		ev.Data = map[string]any{"sectionId": pick(g.rnd, sections)}
	case 1:
		ev.Name = "project_click"
		ev.Data = map[string]any{"projectId": "footprint", "projectName": "footprint"}
	case 2:
		s := pick(g.rnd, skills)
		ev.Name = "skill_click"
		ev.Data = map[string]any{"skillId": s, "skillName": s}
	case 3:
		ev.Name = "contact_click"
		ev.Data = map[string]any{"method": pick(g.rnd, contacts)}
	case 4:
		ev.Name = "download_cv"
		ev.Data = map[string]any{}
	default:
		ev.Name = "time_on_page"
		ev.Data = map[string]any{"duration": 5_000 + g.rnd.IntN(240_000), "path": path}
	}
	return ev
}

func (g *Generator) sample(path string) Sample {
	switch g.rnd.IntN(3) {
	case 0:
		return Sample{X: float64(g.rnd.IntN(1440)), Y: float64(g.rnd.IntN(3000)), Type: "click", Path: path}
	case 1:
		return Sample{X: float64(g.rnd.IntN(1440)), Y: float64(g.rnd.IntN(3000)), Type: "hover", Path: path}
	default:
		return Sample{X: 0, Y: float64(10 * (1 + g.rnd.IntN(10))), Type: "scroll", Path: path}
	}
}

// ExpectedVisits is the number of page views the collector keeps for
// visits sent within one dedupe window: one per distinct ip and path.
func ExpectedVisits(visits []Visit) int {
	seen := make(map[string]struct{})
	for i := range visits {
		for _, p := range visits[i].Pages {
			seen[visits[i].IP+"|"+p] = struct{}{}
		}
	}
	return len(seen)
}

func pick[T any](rnd *rand.Rand, items []T) T {
	return items[rnd.IntN(len(items))]
}
