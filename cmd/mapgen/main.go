package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"

	"mapforge.ai/internal/config"
	"mapforge.ai/internal/mapgen"
	"mapforge.ai/internal/persistence/indexdb"
)

const usage = "usage: mapgen [flags] <mapId> <tiledMapJson> <missionDataRoot> <outputDir>"

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	fs := flag.NewFlagSet("mapgen", flag.ContinueOnError)
	fs.SetOutput(stderr)
	var (
		configPath = fs.String("config", "", "path to mapgen.yaml (optional)")
		dev        = fs.Bool("dev", false, "development mode: also write the pretty raw map (or set MAPGEN_ENV=dev)")
		indexPath  = fs.String("index", "", "sqlite build index path (overrides config index_db; empty to disable)")
		logFile    = fs.String("log_file", "", "also log to this file, rotated (overrides config log_file)")
		verbose    = fs.Bool("v", false, "debug logging")
	)
	fs.Usage = func() {
		fmt.Fprintln(stderr, usage)
		fs.PrintDefaults()
	}
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if fs.NArg() != 4 {
		fmt.Fprintln(stderr, usage)
		return 2
	}
	pos := fs.Args()
	for i, name := range []string{"mapId", "tiledMapJson", "missionDataRoot", "outputDir"} {
		if strings.TrimSpace(pos[i]) == "" {
			fmt.Fprintf(stderr, "mapgen: empty %s\n", name)
			return 2
		}
	}
	mapID, mapPath, missionRoot, outDir := pos[0], pos[1], pos[2], pos[3]

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintln(stderr, "mapgen: load config:", err)
		return 2
	}
	if *dev {
		cfg.Dev = true
	}
	if *indexPath != "" {
		cfg.IndexDB = *indexPath
	}
	if *logFile != "" {
		cfg.LogFile = *logFile
	}

	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	logger.SetOutput(stderr)
	if cfg.LogFile != "" {
		rot := &lumberjack.Logger{Filename: cfg.LogFile, MaxSize: 10, MaxBackups: 5}
		defer rot.Close()
		logger.SetOutput(io.MultiWriter(stderr, rot))
	}
	if *verbose || cfg.Dev {
		logger.SetLevel(logrus.DebugLevel)
	}
	log := logger.WithField("cmd", "mapgen")

	g, err := mapgen.New(mapgen.Options{
		MapID:        mapID,
		TiledMapPath: mapPath,
		MissionRoot:  missionRoot,
		OutputDir:    outDir,
		Config:       cfg,
		Logger:       log,
	})
	if err != nil {
		return fail(stderr, err)
	}
	res, err := g.Generate()
	if err != nil {
		return fail(stderr, err)
	}

	if cfg.IndexDB != "" {
		id, err := recordBuild(cfg, mapPath, res)
		if err != nil {
			fmt.Fprintln(stderr, "mapgen: index:", err)
			return 1
		}
		log.WithFields(logrus.Fields{"build": id, "index": cfg.IndexDB}).Info("recorded build")
	}
	return 0
}

func fail(stderr io.Writer, err error) int {
	fmt.Fprintln(stderr, "mapgen:", err)
	if mapgen.CodeOf(err) == mapgen.ErrUsage {
		return 2
	}
	return 1
}

func recordBuild(cfg config.Config, mapPath string, res *mapgen.Result) (string, error) {
	idx, err := indexdb.OpenSQLite(cfg.IndexDB)
	if err != nil {
		return "", err
	}
	defer idx.Close()

	b := indexdb.Build{
		MapID:     res.MapID,
		SourceMap: mapPath,
		Dev:       cfg.Dev,
		Cells:     res.Cells,
		Entries:   res.Entries,
		AtlasW:    res.Atlas.Width,
		AtlasH:    res.Atlas.Height,
		Sprites:   res.Sprites,
		Missions:  res.Missions,
		Objects:   res.Objects,
	}
	for _, f := range res.Files {
		o, err := indexdb.DescribeFile(f.Name, f.Path)
		if err != nil {
			return "", err
		}
		b.Outputs = append(b.Outputs, o)
	}
	return idx.RecordBuild(context.Background(), b)
}
