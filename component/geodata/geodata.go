package geodata

import (
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/windrose-proxy/windrose/component/trie"
	"github.com/windrose-proxy/windrose/constant"

	"gopkg.in/yaml.v3"
)

// Matcher reports whether a domain belongs to a geosite category.
type Matcher interface {
	ApplyDomain(domain string) bool
}

type trieMatcher struct {
	tree *trie.DomainTrie[struct{}]
}

func (m *trieMatcher) ApplyDomain(domain string) bool {
	return m.tree.Search(domain) != nil
}

var (
	loadOnce   sync.Once
	loadErr    error
	categories map[string][]string

	matcherMux   sync.Mutex
	matcherCache = map[string]Matcher{}
)

func load() {
	buf, err := os.ReadFile(constant.Path.GeoSite())
	if err != nil {
		loadErr = fmt.Errorf("can't read geosite file: %w", err)
		return
	}

	raw := map[string][]string{}
	if err := yaml.Unmarshal(buf, &raw); err != nil {
		loadErr = fmt.Errorf("can't parse geosite file: %w", err)
		return
	}

	categories = make(map[string][]string, len(raw))
	for code, domains := range raw {
		categories[strings.ToLower(code)] = domains
	}
}

// LoadGeoSiteMatcher builds (and caches) the matcher for a category code.
func LoadGeoSiteMatcher(code string) (Matcher, error) {
	loadOnce.Do(load)
	if loadErr != nil {
		return nil, loadErr
	}

	code = strings.ToLower(code)

	matcherMux.Lock()
	defer matcherMux.Unlock()

	if matcher, ok := matcherCache[code]; ok {
		return matcher, nil
	}

	domains, ok := categories[code]
	if !ok {
		return nil, fmt.Errorf("list of geosite \"%s\" not found", code)
	}

	tree := trie.New[struct{}]()
	for _, domain := range domains {
		if err := tree.Insert(domain, struct{}{}); err != nil {
			return nil, fmt.Errorf("invalid domain \"%s\" in geosite \"%s\": %w", domain, code, err)
		}
	}

	matcher := &trieMatcher{tree: tree}
	matcherCache[code] = matcher
	return matcher, nil
}

// Verify reports whether the geosite file is present and parseable.
func Verify() bool {
	loadOnce.Do(load)
	return loadErr == nil
}
