// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package navigate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/pdiddy/menu-hunter/internal/browser"
	"github.com/pdiddy/menu-hunter/pkg/types"
)

// OrderingFlow walks a site's online-ordering flow from its home page:
// dismiss popups, enter ordering, pick an order type, search for a
// location, select a store, and open the menu. Each step tries its actions
// in order until one succeeds; a step with no successful action is
// skipped. Success needs enough text with at least one price.
func (n *Navigator) OrderingFlow(ctx context.Context, page browser.Page, baseURL string, opts Options) types.NavigationResult {
	acts := n.Registry.Actions
	t := n.Timing

	if _, err := page.Goto(ctx, baseURL, n.gotoOptions()); err != nil {
		return failure(baseURL, err.Error())
	}
	if err := Wait(ctx, t.Settle); err != nil {
		return failure(baseURL, err.Error())
	}

	for _, a := range acts.DismissPopups {
		n.act(ctx, page, a)
		if err := Wait(ctx, t.Popup); err != nil {
			return failure(page.URL(), err.Error())
		}
	}

	if n.firstAction(ctx, page, acts.EnterOrdering) {
		if err := Wait(ctx, t.Action); err != nil {
			return failure(page.URL(), err.Error())
		}
	}

	if err := n.chooseOrderType(ctx, page, opts); err != nil {
		return failure(page.URL(), err.Error())
	}

	loc := location(opts)
	enter := make([]string, len(acts.EnterLocation))
	for i, tmpl := range acts.EnterLocation {
		enter[i] = fmt.Sprintf(tmpl, loc)
	}
	for _, group := range [][]string{enter, acts.SelectLocation} {
		if n.firstAction(ctx, page, group) {
			if err := Wait(ctx, t.Location); err != nil {
				return failure(page.URL(), err.Error())
			}
		}
	}
	if err := Wait(ctx, t.Settle); err != nil {
		return failure(page.URL(), err.Error())
	}

	content, err := page.Text(ctx)
	if err != nil {
		return failure(page.URL(), err.Error())
	}
	if !n.Registry.HasPrice(content) && acts.ViewMenu != "" {
		if n.act(ctx, page, acts.ViewMenu) {
			if err := Wait(ctx, t.Action); err != nil {
				return failure(page.URL(), err.Error())
			}
		}
	}
	n.scrollDown(ctx, page, t.FlowScroll)

	content, err = page.Text(ctx)
	if err != nil {
		return failure(page.URL(), err.Error())
	}
	res := types.NavigationResult{Content: content, FinalURL: page.URL()}
	res.Success = longEnough(content) && n.Registry.HasPrice(content)
	if !res.Success {
		res.Error = "ordering flow did not reach a priced menu"
	}
	return res
}

// chooseOrderType picks pickup or delivery when the page offers both,
// falling back to the first option when the preferred choice fails. Pages
// without an order-type choice are left alone.
func (n *Navigator) chooseOrderType(ctx context.Context, page browser.Page, opts Options) error {
	acts := n.Registry.Actions
	text, err := page.Text(ctx)
	if err != nil {
		return err
	}
	lower := strings.ToLower(text)

	if !strings.Contains(lower, "pickup") || !strings.Contains(lower, "delivery") {
		return nil
	}
	preferred := acts.ChoosePickup
	if strings.EqualFold(opts.OrderType, OrderDelivery) {
		preferred = acts.ChooseDelivery
	}
	chosen := preferred != "" && n.act(ctx, page, preferred)
	if !chosen && acts.ChooseFirst != "" {
		chosen = n.act(ctx, page, acts.ChooseFirst)
	}
	if chosen {
		return Wait(ctx, n.Timing.Action)
	}
	return nil
}

// firstAction performs actions in order until one succeeds.
func (n *Navigator) firstAction(ctx context.Context, page browser.Page, actions []string) bool {
	for _, a := range actions {
		if ctx.Err() != nil {
			return false
		}
		if n.act(ctx, page, a) {
			return true
		}
	}
	return false
}

// act performs one instruction and reports whether it succeeded. Failures
// are expected on most sites and are logged at debug level.
func (n *Navigator) act(ctx context.Context, page browser.Page, instruction string) bool {
	err := page.Act(ctx, instruction)
	switch {
	case err == nil:
		n.Logger.Debug("navigate.act", "instruction", instruction)
		return true
	case errors.Is(err, browser.ErrNoAction), errors.Is(err, browser.ErrUnsupported):
		n.Logger.Debug("navigate.act.skip", "instruction", instruction)
	default:
		n.Logger.Debug("navigate.act.error", "instruction", instruction, "error", err)
	}
	return false
}

// ExpandCategories clicks through up to Registry.MaxCategories category
// tabs, collecting each tab's text under a "--- name ---" header. The
// collected text replaces content only when it is longer.
func (n *Navigator) ExpandCategories(ctx context.Context, page browser.Page, content string) (string, bool) {
	cats, err := page.Categories(ctx, n.Registry.CategorySelectors, n.Registry.MaxCategories)
	if err != nil || len(cats) == 0 {
		return content, false
	}

	var b strings.Builder
	for _, tab := range cats {
		if ctx.Err() != nil {
			break
		}
		if !n.act(ctx, page, fmt.Sprintf(n.Registry.Actions.ExpandCategory, tab)) {
			continue
		}
		if err := Wait(ctx, n.Timing.Category); err != nil {
			break
		}
		text, err := page.Text(ctx)
		if err != nil {
			continue
		}
		b.WriteString("\n--- " + tab + " ---\n")
		b.WriteString(text)
	}

	expanded := b.String()
	if utf8.RuneCountInString(expanded) <= utf8.RuneCountInString(content) {
		return content, false
	}
	n.Logger.Info("navigate.expand.done", "categories", len(cats), "chars", utf8.RuneCountInString(expanded))
	return expanded, true
}
