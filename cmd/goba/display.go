package main

import (
	"log"

	"GoBA/internal/gba"
	"GoBA/internal/joypad"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

const (
	screenWidth  = 240
	screenHeight = 160
	windowScale  = 3
)

// window implements the classic ebiten.Game interface: Update advances the
// emulated system until a frame is ready and samples the key state once per
// VBlank, Draw blits the most recent frame (spec §6's display/input
// boundary).
type window struct {
	system     *gba.System
	savePath   string
	cached     *ebiten.Image
	frameCount uint64
}

var keyBindings = []struct {
	key  ebiten.Key
	mask uint16
}{
	{ebiten.KeyZ, joypad.A},
	{ebiten.KeyX, joypad.B},
	{ebiten.KeyBackspace, joypad.Select},
	{ebiten.KeyEnter, joypad.Start},
	{ebiten.KeyArrowRight, joypad.Right},
	{ebiten.KeyArrowLeft, joypad.Left},
	{ebiten.KeyArrowUp, joypad.Up},
	{ebiten.KeyArrowDown, joypad.Down},
	{ebiten.KeyA, joypad.L},
	{ebiten.KeyS, joypad.R},
}

func (w *window) Update() error {
	if ebiten.IsWindowBeingClosed() {
		persistSave(w.system, w.savePath)
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyF11) {
		ebiten.SetFullscreen(!ebiten.IsFullscreen())
	}

	var mask uint16
	for _, kb := range keyBindings {
		if ebiten.IsKeyPressed(kb.key) {
			mask |= kb.mask
		}
	}
	w.system.SetInputs(mask)

	const frameCycles = 280896
	w.frameCount++
	w.system.RunUntil(w.frameCount * frameCycles)

	return nil
}

func (w *window) Draw(screen *ebiten.Image) {
	if frame, ok := w.system.FrameReady(); ok {
		if w.cached == nil {
			w.cached = ebiten.NewImage(screenWidth, screenHeight)
		}
		w.cached.WritePixels(frame.Pix)
	}
	if w.cached != nil {
		screen.DrawImage(w.cached, nil)
	}
}

func (w *window) Layout(_, _ int) (int, int) {
	return screenWidth, screenHeight
}

// runDisplay opens an ebiten window driving system instead of the headless
// fixed-cadence loop (SPEC_FULL's domain-stack entry for ebiten).
func runDisplay(system *gba.System, savePath string) error {
	ebiten.SetWindowSize(screenWidth*windowScale, screenHeight*windowScale)
	ebiten.SetWindowTitle("GoBA")
	ebiten.SetWindowResizable(true)
	ebiten.SetVsyncEnabled(true)

	w := &window{system: system, savePath: savePath}
	if err := ebiten.RunGame(w); err != nil && err != ebiten.Termination {
		log.Printf("display: %v", err)
		return err
	}
	return nil
}
