// Command dbscan runs the incremental clusterer over a hit stream, either
// from a file of "channel time_ticks" records or live from a UDP socket.
// It can compare the result against the batch reference, persist finalized
// clusters to SQLite, render a scatter plot, and serve a live monitor.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"runtime/pprof"
	"syscall"
	"time"

	"github.com/banshee-data/trigger.stream/internal/clusterdb"
	"github.com/banshee-data/trigger.stream/internal/config"
	"github.com/banshee-data/trigger.stream/internal/dbscan"
	"github.com/banshee-data/trigger.stream/internal/hitio"
	"github.com/banshee-data/trigger.stream/internal/monitor"
	"github.com/banshee-data/trigger.stream/internal/monitoring"
	"github.com/banshee-data/trigger.stream/internal/plot"
	"github.com/banshee-data/trigger.stream/internal/version"
)

var (
	file       = flag.String("file", "", "input file of hits (channel time_ticks pairs)")
	nskip      = flag.Int("nskip", 0, "number of hits at start of file to skip")
	nhits      = flag.Int("nhits", -1, "maximum number of hits to read from file (-1 for all)")
	minPts     = flag.Int("minpts", 2, "minimum number of hits to form a cluster")
	distance   = flag.Float64("distance", 10, "distance threshold for hits to be neighbours")
	testMode   = flag.Bool("test", false, "compare against the batch reference implementation")
	plotOut    = flag.Bool("plot", false, "write cluster scatter plots (PNG)")
	profileOut = flag.String("profile", "", "write a CPU profile to this file")
	dbPath     = flag.String("db", "", "path to a SQLite database for finalized clusters")
	configFile = flag.String("config", "", "tuning config JSON (flags override it)")
	listen     = flag.String("listen", "", "HTTP monitor listen address (e.g. :8082)")
	udpPort    = flag.Int("udp-port", 0, "listen for hits on this UDP port instead of reading a file")
	udpAddr    = flag.String("udp-addr", "", "UDP bind address (default: all interfaces)")
	rcvBuf     = flag.Int("rcvbuf", 4<<20, "UDP receive buffer size in bytes")
)

// sentinelTime is far beyond any finite tick timestamp; ingesting it forces
// every remaining cluster to finalize.
const sentinelTime = 10_000_000

// tickClockHz is the acquisition clock; together with the tick scaling it
// converts engine time units back to data seconds for the throughput report.
const tickClockHz = 50e6

func main() {
	flag.Parse()
	log.Printf("dbscan %s", version.Summary())

	if *file == "" && *udpPort == 0 {
		fmt.Fprintln(os.Stderr, "either -file or -udp-port is required")
		flag.Usage()
		os.Exit(1)
	}
	if *file != "" && *udpPort != 0 {
		fmt.Fprintln(os.Stderr, "-file and -udp-port are mutually exclusive")
		os.Exit(1)
	}

	// Flags the user set explicitly win over the config file.
	setFlags := map[string]bool{}
	flag.Visit(func(f *flag.Flag) { setFlags[f.Name] = true })

	cfg := &config.TuningConfig{}
	if *configFile != "" {
		loaded, err := config.LoadTuningConfig(*configFile)
		if err != nil {
			fmt.Fprintf(os.Stderr, "bad config: %v\n", err)
			os.Exit(1)
		}
		cfg = loaded
	}

	eps := cfg.GetEps()
	if setFlags["distance"] {
		eps = *distance
	}
	pts := cfg.GetMinPts()
	if setFlags["minpts"] {
		pts = *minPts
	}

	if *profileOut != "" {
		f, err := os.Create(*profileOut)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cannot create profile file: %v\n", err)
			os.Exit(1)
		}
		defer f.Close()
		if err := pprof.StartCPUProfile(f); err != nil {
			fmt.Fprintf(os.Stderr, "cannot start profiler: %v\n", err)
			os.Exit(1)
		}
		defer pprof.StopCPUProfile()
	}

	engine := dbscan.NewEngineWithCapacity(eps, pts, cfg.GetArenaCapacity())
	engine.SetTrimLookback(cfg.GetTrimLookback())

	stats := monitoring.NewIngestStats()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	var ws *monitor.WebServer
	if *listen != "" {
		ws = monitor.NewWebServer(monitor.WebServerConfig{
			Address:        *listen,
			RecentClusters: cfg.GetRecentClusters(),
		})
		go func() {
			if err := ws.Start(ctx); err != nil {
				log.Printf("monitor server: %v", err)
			}
		}()
	}

	var db *clusterdb.ClusterDB
	var runID string
	if *dbPath != "" {
		var err error
		db, err = clusterdb.New(*dbPath)
		if err != nil {
			log.Fatalf("open cluster db: %v", err)
		}
		defer db.Close()
		source := *file
		if source == "" {
			source = fmt.Sprintf("udp:%d", *udpPort)
		}
		runID, err = db.StartRun(source, eps, pts)
		if err != nil {
			log.Fatalf("start run: %v", err)
		}
	}

	var emitted []*dbscan.Cluster
	onCluster := func(c *dbscan.Cluster) {
		emitted = append(emitted, c)
		stats.AddClusters(1)
		if ws != nil {
			ws.RecordCluster(c)
		}
		if db != nil {
			if err := db.RecordCluster(runID, c); err != nil {
				log.Printf("record cluster %d: %v", c.Index, err)
			}
		}
	}

	// Periodic stats logging, independent of the ingest path.
	go func() {
		ticker := time.NewTicker(cfg.GetLogInterval())
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				stats.LogStats()
			}
		}
	}()

	var hitCount int
	if *file != "" {
		hitCount = runFromFile(engine, stats, ws, onCluster)
	} else {
		hitCount = runFromUDP(ctx, engine, stats, ws, onCluster)
	}

	if db != nil {
		if err := db.FinishRun(runID, hitCount, len(emitted)); err != nil {
			log.Printf("finish run: %v", err)
		}
	}

	log.Printf("found %d clusters total", len(emitted))
}

// runFromFile replays a recorded hit file through the engine and returns
// the number of hits processed. It also handles -test and -plot, which
// need the full point list.
func runFromFile(engine *dbscan.Engine, stats *monitoring.IngestStats, ws *monitor.WebServer, onCluster func(*dbscan.Cluster)) int {
	log.Printf("reading hits from %s", *file)
	points, err := hitio.ReadPointsFile(*file, *nskip, *nhits)
	if err != nil {
		log.Fatalf("read hits: %v", err)
	}
	if len(points) == 0 {
		log.Fatalf("no hits in %s", *file)
	}
	hitio.SortByTime(points)

	var batchLabels []int
	if *testMode {
		log.Printf("running batch reference over %d hits", len(points))
		batchLabels = dbscan.BatchDBSCAN(points, engine.Eps(), engine.MinPts())
	}

	var emitted []*dbscan.Cluster
	collect := func(c *dbscan.Cluster) {
		emitted = append(emitted, c)
		onCluster(c)
	}

	log.Printf("running incremental dbscan over %d hits", len(points))
	start := time.Now()
	lastMark := start
	for i, p := range points {
		if err := engine.IngestPoint(p.Time, p.Chan); err != nil {
			log.Fatalf("ingest hit %d (%v, %d): %v", i, p.Time, p.Chan, err)
		}
		stats.AddHits(1)
		if ws != nil {
			ws.RecordHits(1)
		}
		for _, c := range engine.Drain() {
			collect(c)
		}
		engine.Trim()

		if (i+1)%100_000 == 0 {
			now := time.Now()
			log.Printf("100k hits took %.3fs", now.Sub(lastMark).Seconds())
			lastMark = now
		}
	}

	// A far-future hit sweeps out everything still active.
	if err := engine.IngestPoint(sentinelTime, 0); err != nil {
		log.Fatalf("ingest sentinel: %v", err)
	}
	engine.Flush()
	for _, c := range engine.Drain() {
		collect(c)
	}
	elapsed := time.Since(start)

	dataSeconds := (points[len(points)-1].Time - points[0].Time) * hitio.TickScale / tickClockHz
	log.Printf("processed %d hits representing %.3fs of data in %.3fs (ratio %.1f)",
		len(points), dataSeconds, elapsed.Seconds(), dataSeconds/elapsed.Seconds())

	labels := dbscan.LabelsFromClusters(len(points), emitted)

	if *testMode {
		if dbscan.EquivalentPartitions(labels, batchLabels) {
			log.Printf("batch and incremental results matched")
		} else {
			log.Printf("batch and incremental results DIFFERED")
		}
	}

	if *plotOut {
		if err := plot.SaveClusterScatter("dbscan-incremental.png", "incremental clusters", points, labels); err != nil {
			log.Printf("plot: %v", err)
		}
		if *testMode {
			if err := plot.SaveClusterScatter("dbscan-batch.png", "batch clusters", points, batchLabels); err != nil {
				log.Printf("plot: %v", err)
			}
		}
	}

	return len(points)
}

// runFromUDP feeds the engine from a UDP listener until the context is
// cancelled, then flushes. Out-of-order datagrams are dropped and counted
// rather than aborting the stream.
func runFromUDP(ctx context.Context, engine *dbscan.Engine, stats *monitoring.IngestStats, ws *monitor.WebServer, onCluster func(*dbscan.Cluster)) int {
	hitCount := 0
	trimCountdown := 0
	handler := func(p dbscan.Point) {
		if err := engine.IngestPoint(p.Time, p.Chan); err != nil {
			stats.AddDropped()
			return
		}
		hitCount++
		if ws != nil {
			ws.RecordHits(1)
		}
		for _, c := range engine.Drain() {
			onCluster(c)
		}
		if trimCountdown++; trimCountdown >= 1000 {
			trimCountdown = 0
			engine.Trim()
		}
	}

	listener, err := hitio.NewUDPListener(*udpAddr, *udpPort, *rcvBuf, stats, handler)
	if err != nil {
		log.Fatalf("udp listen: %v", err)
	}
	log.Printf("listening for hits on %s", listener.Addr())

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := listener.Serve(); err != nil {
			log.Printf("udp serve: %v", err)
		}
	}()

	<-ctx.Done()
	listener.Close()
	<-done

	engine.Flush()
	for _, c := range engine.Drain() {
		onCluster(c)
	}
	return hitCount
}
