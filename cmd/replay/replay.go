// replay runs a directory of frames through the detection pipeline, without sending any alerts.
// This is how we tune thresholds against recorded footage.
package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/akamensky/argparse"
	"github.com/cyclopcam/firewatch/pkg/nnremote"
	"github.com/cyclopcam/firewatch/pkg/vision"
	"github.com/cyclopcam/firewatch/server/config"
	"github.com/cyclopcam/firewatch/server/configdb"
	"github.com/cyclopcam/firewatch/server/monitor"
	"github.com/cyclopcam/firewatch/server/notifications"
	"github.com/cyclopcam/logs"
)

type replaySubject struct{}

func (replaySubject) ResolveSubject(id int64) *configdb.Subject {
	return &configdb.Subject{BaseModel: configdb.BaseModel{ID: id}, Name: "replay"}
}

func check(err error) {
	if err != nil {
		fmt.Printf("%v\n", err)
		os.Exit(1)
	}
}

func main() {
	parser := argparse.NewParser("replay", "Run recorded frames through the fire/smoke pipeline")
	dir := parser.String("d", "dir", &argparse.Options{Help: "Directory of .jpg frames, processed in name order", Required: true})
	configFile := parser.String("c", "config", &argparse.Options{Help: "Config file with thresholds (optional)", Default: ""})
	classifierURL := parser.String("", "classifier", &argparse.Options{Help: "Classifier URL, overriding the config", Default: ""})
	outDir := parser.String("o", "out", &argparse.Options{Help: "Write annotated copies of frames with a winner into this directory", Default: ""})
	noMotion := parser.Flag("", "nomotion", &argparse.Options{Help: "Disable the motion gate", Default: false})
	err := parser.Parse(os.Args)
	if err != nil {
		fmt.Print(parser.Usage(err))
		os.Exit(1)
	}

	logger, err := logs.NewLog()
	check(err)

	cfg := config.DefaultConfig()
	if *configFile != "" {
		cfg, err = config.LoadConfig(*configFile, "")
		check(err)
	}
	if *classifierURL != "" {
		cfg.Classifier.URL = *classifierURL
	}
	if cfg.Classifier.URL == "" {
		check(fmt.Errorf("No classifier URL. Use --classifier"))
	}
	if *noMotion {
		cfg.Monitor.DisableMotionGate = true
	}
	if *outDir != "" {
		check(os.MkdirAll(*outDir, 0755))
	}

	frames, err := filepath.Glob(filepath.Join(*dir, "*.jpg"))
	check(err)
	if len(frames) == 0 {
		check(fmt.Errorf("No .jpg files in %v", *dir))
	}

	// A gatekeeper with no transport decides whether we would have alerted, but never sends anything
	gk := notifications.NewGatekeeper(logger, cfg.NotificationSettings(), nil, nil)
	mon := monitor.NewMonitor(logger, cfg.Monitor, nnremote.NewClient(cfg.Classifier.URL, nil), gk, replaySubject{}, nil)
	defer mon.Close()
	_, err = mon.SetActivation(monitor.ActionStart, 1)
	check(err)

	ctx := context.Background()
	fmt.Printf("%-32s %-13s %-6s %-5s %-6s %-5s %-5s %s\n", "frame", "status", "winner", "conf", "fire", "fs", "ss", "notify")
	confirmed := 0
	for _, fn := range frames {
		raw, err := os.ReadFile(fn)
		check(err)
		r := mon.SubmitFrame(ctx, raw)
		notify := ""
		if r.Fire {
			confirmed++
			notify = fmt.Sprintf("%v (%v)", r.ShouldNotify, r.Notification)
		}
		fmt.Printf("%-32s %-13s %-6s %-5.2f %-6v %-5d %-5d %s\n", filepath.Base(fn), r.Status, r.DetectedClass, r.Confidence, r.Fire, r.FireStreak, r.SmokeStreak, notify)

		if *outDir != "" && r.Box.Area() > 0 {
			writeAnnotated(filepath.Join(*outDir, filepath.Base(fn)), raw, r)
		}
	}
	fmt.Printf("%v frames, %v confirmed events\n", len(frames), confirmed)
}

func writeAnnotated(filename string, raw []byte, r *monitor.FrameResult) {
	img, err := vision.Decode(raw)
	check(err)
	defer img.Close()
	jpg, err := vision.RenderSnapshot(img, r.DetectedClass, r.Confidence, r.Box, 85)
	check(err)
	check(os.WriteFile(strings.TrimSuffix(filename, ".jpg")+"-annotated.jpg", jpg, 0644))
}
