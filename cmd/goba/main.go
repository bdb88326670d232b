package main

import (
	"image"
	"image/png"
	"log"
	"os"
	"time"

	"GoBA/internal/gba"
	"GoBA/rom"

	"github.com/spf13/cobra"
)

func main() {
	var (
		savePath string
		biosPath string
		debug    bool
		display  bool
	)

	runCmd := &cobra.Command{
		Use:   "run <rom>",
		Short: "Run a Game Boy Advance ROM",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runROM(args[0], biosPath, savePath, debug, display)
		},
	}
	runCmd.Flags().StringVar(&savePath, "save", "", "save file path (defaults to <rom>.sav)")
	runCmd.Flags().StringVar(&biosPath, "bios", "", "BIOS image path")
	runCmd.Flags().BoolVar(&debug, "debug", false, "verbose runtime logging")
	runCmd.Flags().BoolVar(&display, "display", false, "open a window instead of running headless")

	rootCmd := &cobra.Command{
		Use:   "goba",
		Short: "GoBA — a Game Boy Advance execution core",
	}
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func runROM(romPath, biosPath, savePath string, debug, display bool) error {
	romFile, err := rom.Load(romPath)
	if err != nil {
		return err
	}

	var biosData []byte
	if biosPath != "" {
		bios, err := rom.Load(biosPath)
		if err != nil {
			return err
		}
		biosData = bios.Data
	}

	if savePath == "" {
		savePath = romPath + ".sav"
	}

	system := gba.New(biosData)
	system.LoadROM(romFile.Data)

	if saveData, err := os.ReadFile(savePath); err == nil {
		system.LoadSaveBytes(saveData)
	}

	if debug {
		log.Printf("loaded %s (%d bytes), save=%s", romPath, len(romFile.Data), savePath)
	}

	if display {
		return runDisplay(system, savePath)
	}
	return runHeadless(system, savePath, debug)
}

// runHeadless drives the system with no window: it renders the first
// completed frame to disk and then keeps running, persisting the save
// image periodically, in the style of the teacher's single-file main.go.
func runHeadless(system *gba.System, savePath string, debug bool) error {
	const frameCycles = 280896 // 228 scanlines * 1232 cycles: one full GBA frame

	frameCount := 0
	lastSave := time.Now()

	for {
		system.RunUntil(uint64(frameCount+1) * frameCycles)
		frameCount++

		if frame, ok := system.FrameReady(); ok {
			if frameCount == 1 {
				if err := saveFrame(frame, "first_frame.png"); err != nil {
					return err
				}
			}
		}

		if time.Since(lastSave) >= 5*time.Second {
			persistSave(system, savePath)
			lastSave = time.Now()
			if debug {
				log.Printf("frame %d", frameCount)
			}
		}
	}
}

func persistSave(system *gba.System, path string) {
	data := system.SaveBytes()
	if data == nil {
		return
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		log.Printf("save write failed: %v", err)
	}
}

func saveFrame(frame *image.RGBA, filename string) error {
	file, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer file.Close()
	if err := png.Encode(file, frame); err != nil {
		return err
	}
	log.Printf("saved first frame to %s", filename)
	return nil
}
