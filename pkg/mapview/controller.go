package mapview

import (
	"context"

	"iotinerary/pkg/model"
	"iotinerary/pkg/overlay"
)

// Controller exposes a view to other goroutines by running every call on
// the loop that owns it.
type Controller struct {
	loop *Loop
	view *View
}

// NewController binds v to loop.
func NewController(loop *Loop, v *View) *Controller {
	return &Controller{loop: loop, view: v}
}

// Status returns the view status.
func (c *Controller) Status(ctx context.Context) (Status, error) {
	var st Status
	err := c.loop.Do(ctx, func() { st = c.view.Status() })
	return st, err
}

// ApplyOverlay runs a toggle action on the view.
func (c *Controller) ApplyOverlay(ctx context.Context, a overlay.Action) (model.OverlayToggles, overlay.Notice, error) {
	var next model.OverlayToggles
	var notice overlay.Notice
	err := c.loop.Do(ctx, func() { next, notice = c.view.ApplyOverlay(a) })
	return next, notice, err
}

// ClickMarker simulates a marker click.
func (c *Controller) ClickMarker(ctx context.Context) error {
	var clickErr error
	if err := c.loop.Do(ctx, func() { clickErr = c.view.ClickMarker() }); err != nil {
		return err
	}
	return clickErr
}

// Resize forwards a container resize.
func (c *Controller) Resize(ctx context.Context) error {
	var resizeErr error
	if err := c.loop.Do(ctx, func() { resizeErr = c.view.Resize() }); err != nil {
		return err
	}
	return resizeErr
}

// Initialize builds the map in container.
func (c *Controller) Initialize(ctx context.Context, container string) error {
	var initErr error
	if err := c.loop.Do(ctx, func() { initErr = c.view.Initialize(container) }); err != nil {
		return err
	}
	return initErr
}

// Teardown releases the map.
func (c *Controller) Teardown(ctx context.Context) error {
	return c.loop.Do(ctx, c.view.Teardown)
}

// Camera returns the configured camera target. It is immutable, so no loop
// round trip is needed.
func (c *Controller) Camera() model.CameraTarget {
	return c.view.Camera()
}
