package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/paulmach/orb/geojson"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/OCAP2/markerview/internal/config"
	"github.com/OCAP2/markerview/internal/geo"
	"github.com/OCAP2/markerview/internal/logging"
	"github.com/OCAP2/markerview/internal/markerview"
	mvotel "github.com/OCAP2/markerview/internal/otel"
	"github.com/OCAP2/markerview/internal/registry"
	"github.com/OCAP2/markerview/internal/trace"
	"github.com/OCAP2/markerview/pkg/core"
)

type simulateOptions struct {
	markers  string
	script   string
	out      string
	frames   int
	realtime bool
}

func newSimulateCmd() *cobra.Command {
	var opts simulateOptions

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Replay a camera script over GeoJSON markers and report the bound views",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.markers, "markers", "", "GeoJSON FeatureCollection of Point markers")
	cmd.Flags().StringVar(&opts.script, "script", "", "YAML camera script (default: hold the camera over the markers)")
	cmd.Flags().StringVar(&opts.out, "out", "", "write the bound markers as GeoJSON to this file")
	cmd.Flags().IntVar(&opts.frames, "frames", 60, "frames to run when no script is given")
	cmd.Flags().BoolVar(&opts.realtime, "realtime", false, "pace frames at camera.frameInterval")
	_ = cmd.MarkFlagRequired("markers")

	return cmd
}

func runSimulate(ctx context.Context, out io.Writer, opts simulateOptions) error {
	sess := logging.NewSession(uuid.NewString(), time.Now())

	logger, closeLogs, err := setupLogging(sess)
	if err != nil {
		return err
	}
	defer closeLogs()

	markers, err := loadMarkers(opts.markers)
	if err != nil {
		return err
	}
	sc := defaultScript(markers, opts.frames)
	if opts.script != "" {
		if sc, err = loadScript(opts.script); err != nil {
			return err
		}
	}

	sink, err := trace.NewSink(config.GetTraceConfig(), sess.ID)
	if err != nil {
		return fmt.Errorf("failed to create trace sink: %w", err)
	}

	sim, err := newSimulation(sess, config.GetCameraConfig(), config.GetCoordinatorConfig(), logger, sink)
	if err != nil {
		_ = sink.Close()
		return err
	}
	sim.realtime = opts.realtime

	for _, m := range markers {
		if _, err := sim.coord.Insert(m); err != nil {
			return errors.Join(err, sim.coord.Close(), sink.Close())
		}
	}
	logger.Info("Markers loaded", "count", len(markers), "path", opts.markers)

	runErr := sim.run(ctx, sc)
	summary := sim.summary()
	fc := sim.boundFeatures()
	if err := errors.Join(runErr, sim.coord.Close(), sink.Close()); err != nil {
		return err
	}
	if mem, ok := sink.(*trace.Memory); ok {
		logger.Info("Trace exported", "path", mem.ExportPath())
	}

	if opts.out != "" {
		data, err := fc.MarshalJSON()
		if err != nil {
			return err
		}
		if err := os.WriteFile(opts.out, data, 0644); err != nil {
			return fmt.Errorf("failed to write bound markers: %w", err)
		}
	}

	enc := yaml.NewEncoder(out)
	defer enc.Close()
	return enc.Encode(summary)
}

// setupLogging opens the session log file and builds the coordinator logger
// for the configured backend.
func setupLogging(sess *logging.Session) (markerview.Logger, func(), error) {
	logsDir := config.GetString("logsDir")
	level := config.GetString("logLevel")

	if err := os.MkdirAll(logsDir, 0755); err != nil {
		return nil, nil, fmt.Errorf("failed to create logs directory: %w", err)
	}
	path := logging.LogFilePath(logsDir, "markerview", sess.Start)
	file, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open log file: %w", err)
	}

	var extra []io.Writer
	closers := []func(){func() { _ = file.Close() }}
	if gc := config.GetGraylogConfig(); gc.Enabled {
		w, err := logging.NewGELFWriter(gc.Address)
		if err != nil {
			_ = file.Close()
			return nil, nil, err
		}
		extra = append(extra, w)
		closers = append(closers, func() { _ = w.Close() })
	}

	oc := config.GetOTelConfig()
	provider, err := mvotel.New(mvotel.Config{
		Enabled:      oc.Enabled,
		ServiceName:  oc.ServiceName,
		BatchTimeout: oc.BatchTimeout,
		LogWriter:    file,
		MetricWriter: file,
		Endpoint:     oc.Endpoint,
		Insecure:     oc.Insecure,
	})
	if err != nil {
		_ = file.Close()
		return nil, nil, err
	}

	closeAll := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = provider.Shutdown(ctx)
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if config.GetString("logBackend") == "zerolog" {
		zl := logging.NewZerolog(level, append([]io.Writer{file}, extra...)...).Hook(sess)
		return logging.NewZerologAdapter(zl), closeAll, nil
	}

	sm := logging.NewSlogManager()
	sm.SetSession(sess)
	sm.Setup(file, level, provider.LoggerProvider(), extra...)
	return sm.Logger(), closeAll, nil
}

// simulation drives a coordinator with a virtual clock advanced by one frame
// interval per tick.
type simulation struct {
	sess     *logging.Session
	camera   *geo.Camera
	reg      *registry.Registry
	coord    *markerview.Coordinator
	logger   markerview.Logger
	interval time.Duration
	now      time.Time
	realtime bool
}

func newSimulation(sess *logging.Session, cc config.CameraConfig, mc markerview.Config, logger markerview.Logger, sink trace.Sink) (*simulation, error) {
	camera, err := geo.NewCamera(cc.Width, cc.Height)
	if err != nil {
		return nil, err
	}
	interval := cc.FrameInterval
	if interval <= 0 {
		interval = 16 * time.Millisecond
	}

	s := &simulation{
		sess:     sess,
		camera:   camera,
		reg:      registry.New(),
		logger:   logger,
		interval: interval,
		now:      sess.Start,
	}

	s.coord, err = markerview.New(s.reg, camera,
		markerview.WithConfig(mc),
		markerview.WithLogger(logger),
		markerview.WithClock(func() time.Time { return s.now }),
		markerview.WithTrace(sink),
	)
	if err != nil {
		return nil, err
	}

	for _, a := range []markerview.Adapter{labelAdapter{}, pinAdapter{}} {
		if err := s.coord.RegisterAdapter(a); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *simulation) run(ctx context.Context, sc *script) error {
	s.moveCamera(sc.Start, nil)

	var ticker *time.Ticker
	if s.realtime {
		ticker = time.NewTicker(s.interval)
		defer ticker.Stop()
	}

	for i, st := range sc.Steps {
		s.moveCamera(st.cameraState, st.Pan)
		for _, title := range st.Click {
			s.click(title)
		}
		s.logger.Debug("Script step", "step", i, "frames", st.Frames, "center", s.camera.Center.String())

		for f := 0; f < st.Frames; f++ {
			if ticker != nil {
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-ticker.C:
				}
			} else if err := ctx.Err(); err != nil {
				return err
			}
			s.tick()
		}
	}
	return nil
}

func (s *simulation) tick() {
	s.now = s.now.Add(s.interval)
	s.coord.Tick()
	s.sess.Observe(s.coord.Frame(), len(s.coord.Bindings()))
}

func (s *simulation) moveCamera(cs cameraState, p *pan) {
	center, zoom, bearing, tilt := s.camera.Center, s.camera.Zoom, s.camera.Bearing, s.camera.Tilt
	if cs.Center != nil {
		center = core.LatLng{Lat: cs.Center.Lat, Lng: cs.Center.Lng}
	}
	if cs.Zoom != nil {
		zoom = *cs.Zoom
	}
	if cs.Bearing != nil {
		bearing = *cs.Bearing
	}
	if cs.Tilt != nil {
		tilt = *cs.Tilt
	}
	s.camera.MoveTo(center, zoom, bearing, tilt)
	if p != nil {
		s.camera.PanBy(p.DX, p.DY)
	}

	s.coord.SetTilt(s.camera.Tilt)
	s.coord.NotifyViewportChanged()
}

// click routes a click to every bound marker carrying title.
func (s *simulation) click(title string) {
	for _, m := range s.reg.All() {
		if m.Title != title {
			continue
		}
		if err := s.coord.Click(m.ID); err != nil {
			s.logger.Info("Click ignored", "marker", m.ID, "title", title, "error", err)
		}
	}
}

// Summary is printed as YAML at the end of a run.
type Summary struct {
	Session  string                   `yaml:"session"`
	Frames   uint64                   `yaml:"frames"`
	Markers  int                      `yaml:"markers"`
	Visible  int                      `yaml:"visible"`
	Bound    int                      `yaml:"bound"`
	Pooled   map[core.AdapterType]int `yaml:"pooled"`
	Selected []core.MarkerID          `yaml:"selected,omitempty"`
}

func (s *simulation) summary() Summary {
	sum := Summary{
		Session:  s.sess.ID,
		Frames:   s.coord.Frame(),
		Markers:  s.reg.Len(),
		Visible:  len(s.reg.QueryVisible(s.camera.VisibleBounds())),
		Bound:    len(s.coord.Bindings()),
		Pooled:   make(map[core.AdapterType]int),
		Selected: s.coord.Selected(),
	}
	for _, t := range []core.AdapterType{defaultMarkerType, pinType} {
		sum.Pooled[t] = s.coord.PoolSize(t)
	}
	return sum
}

// boundFeatures exports every bound marker with its view's screen position.
func (s *simulation) boundFeatures() *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, b := range s.coord.Bindings() {
		m, ok := s.reg.Get(b.MarkerID)
		if !ok {
			continue
		}
		f := geojson.NewFeature(m.Position.Point())
		f.ID = uint64(m.ID)
		f.Properties["type"] = string(m.Type)
		f.Properties["title"] = m.Title
		f.Properties["selected"] = m.Selected
		f.Properties["x"] = b.View.X
		f.Properties["y"] = b.View.Y
		fc.Append(f)
	}
	return fc
}
