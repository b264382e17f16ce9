package fetch

import (
	"context"
	"fmt"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/proto"
)

// renderPage loads a URL in the bound browser and returns the rendered
// document once the results table has appeared. The SC and NM archives are
// React applications; the initial body is an empty shell.
func renderPage(ctx context.Context, browser *rod.Browser, url string) ([]byte, error) {
	page, err := browser.Context(ctx).Page(proto.TargetCreateTarget{URL: url})
	if err != nil {
		return nil, fmt.Errorf("failed to open page %s: %w", url, err)
	}
	defer page.Close()

	if err := page.WaitLoad(); err != nil {
		return nil, fmt.Errorf("page %s did not finish loading: %w", url, err)
	}
	// The table id is shared by every ElectionStats deployment.
	if _, err := page.Element("#search_results_table"); err != nil {
		return nil, fmt.Errorf("results table never rendered on %s: %w", url, err)
	}

	content, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("failed to read rendered page %s: %w", url, err)
	}
	return []byte(content), nil
}
