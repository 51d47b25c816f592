package cdp

import (
	"context"
	"fmt"
)

// AttachToPage attaches to the first page target of the remote browser,
// creating one when none exists, and returns a context that routes CDP
// commands to it.
func (c *Client) AttachToPage(ctx context.Context) (context.Context, error) {
	infos, err := c.Target.GetTargets(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing browser targets: %w", err)
	}

	var targetID string
	for _, info := range infos {
		if info.Type == "page" {
			targetID = string(info.TargetID)
			break
		}
	}
	if targetID == "" {
		if targetID, err = c.Target.CreateTarget(ctx, "about:blank"); err != nil {
			return nil, fmt.Errorf("creating page target: %w", err)
		}
	}

	sid, err := c.Target.AttachToTarget(ctx, targetID)
	if err != nil {
		return nil, err
	}
	c.logger.Debugf("cdp", "attached to page target %q as session %q", targetID, sid)

	return WithSessionID(ctx, sid), nil
}
