// Package browser exposes a headless browser as the small capability the
// custom adapters need: navigate, wait, click, scroll and read the DOM.
package browser

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/chromedp"

	"jobhunt-aggregator/internal/domain"
)

// Page is one live browser tab. Every call is bounded by a timeout; the
// session context given to Launch cancels all of them at once.
type Page interface {
	Navigate(url string) error
	WaitVisible(selector string, timeout time.Duration) error
	Click(selector string) error
	// ClickAll clicks every element matching selector and reports how many.
	ClickAll(selector string) (int, error)
	Exists(selector string) (bool, error)
	// ScrollToBottom scrolls the window to the end of the document and
	// returns the document height afterwards.
	ScrollToBottom() (int64, error)
	// HTML returns the rendered document and the URL it was loaded from.
	HTML() (html string, pageURL string, err error)
}

// Launcher starts a browser session. The returned close func must be called
// on every exit path; it is safe to call more than once.
type Launcher interface {
	Launch(ctx context.Context) (Page, func(), error)
}

const DefaultActionTimeout = 15 * time.Second

// Chrome launches a local Chrome/Chromium through chromedp.
type Chrome struct {
	Headful       bool
	ExecPath      string
	ActionTimeout time.Duration
}

func (c Chrome) Launch(ctx context.Context) (Page, func(), error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", !c.Headful),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.WindowSize(1400, 1000),
	)
	if c.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(c.ExecPath))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	tabCtx, cancelTab := chromedp.NewContext(allocCtx)

	var once sync.Once
	closeFn := func() {
		once.Do(func() {
			cancelTab()
			cancelAlloc()
		})
	}

	// An empty Run starts the browser process so launch errors surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		closeFn()
		return nil, func() {}, fmt.Errorf("%w: start browser: %v", domain.ErrSourceUnavailable, err)
	}

	timeout := c.ActionTimeout
	if timeout <= 0 {
		timeout = DefaultActionTimeout
	}
	return &chromePage{ctx: tabCtx, timeout: timeout}, closeFn, nil
}

type chromePage struct {
	ctx     context.Context
	timeout time.Duration
}

func (p *chromePage) run(timeout time.Duration, what string, actions ...chromedp.Action) error {
	ctx, cancel := context.WithTimeout(p.ctx, timeout)
	defer cancel()
	if err := chromedp.Run(ctx, actions...); err != nil {
		return classify(what, err)
	}
	return nil
}

func (p *chromePage) Navigate(url string) error {
	log.Printf("[browser] navigate url=%s", url)
	if err := p.run(p.timeout, "navigate "+url, chromedp.Navigate(url)); err != nil {
		if errors.Is(err, domain.ErrInteractionTimeout) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrSourceUnavailable, err)
	}
	return nil
}

func (p *chromePage) WaitVisible(selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.timeout
	}
	return p.run(timeout, "wait "+selector, chromedp.WaitVisible(selector, chromedp.ByQuery))
}

func (p *chromePage) Click(selector string) error {
	return p.run(p.timeout, "click "+selector,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible),
	)
}

func (p *chromePage) ClickAll(selector string) (int, error) {
	var n int
	script := fmt.Sprintf(`(() => { const els = document.querySelectorAll(%q); els.forEach(e => e.click()); return els.length; })()`, selector)
	err := p.run(p.timeout, "click all "+selector, chromedp.Evaluate(script, &n))
	return n, err
}

func (p *chromePage) Exists(selector string) (bool, error) {
	var nodes []*cdp.Node
	err := p.run(p.timeout, "query "+selector,
		chromedp.Nodes(selector, &nodes, chromedp.ByQueryAll, chromedp.AtLeast(0)))
	if err != nil {
		return false, err
	}
	return len(nodes) > 0, nil
}

func (p *chromePage) ScrollToBottom() (int64, error) {
	var height int64
	err := p.run(p.timeout, "scroll",
		chromedp.Evaluate(`window.scrollTo(0, document.body.scrollHeight); document.body.scrollHeight`, &height))
	return height, err
}

func (p *chromePage) HTML() (string, string, error) {
	var html, loc string
	err := p.run(p.timeout, "read document",
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
		chromedp.Location(&loc),
	)
	return html, loc, err
}

// classify maps chromedp errors onto the failure taxonomy: an expired wait is
// an interaction timeout, anything else means the page did not look as expected.
func classify(what string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || strings.Contains(err.Error(), "deadline exceeded") {
		return fmt.Errorf("%w: %s: %v", domain.ErrInteractionTimeout, what, err)
	}
	return fmt.Errorf("%w: %s: %v", domain.ErrMarkupMismatch, what, err)
}
