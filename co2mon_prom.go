package main

import (
	"encoding/hex"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vit1251/go-co2mon/co2monitor"
	"github.com/vit1251/go-co2mon/co2monitor/zyaura"
)

// CLI args
var (
	listenAddr  = flag.String("listen-address", ":8080", "The address to listen on for HTTP requests.")
	keyHex      = flag.String("key", "", "16 hex digits seeding the report obfuscation key (default all-zero)")
	readTimeout = flag.Duration("timeout", zyaura.DefaultTimeout, "single report read timeout")
	debug       = flag.Bool("debug", false, "log decoded frames")
	configPath  = flag.String("config", "", "optional yaml config file; explicit flags win over it")
)

// metrics to expose to Prometheus
var (
	gaugeTemperature   = newGauge("ambient_temperature", "Ambient Temperature (units: degrees Celsius)")
	gaugeConcentration = newGauge("relative_concentration", "Relative Concentration of CO2 (units: ppm)")
	gaugeHumidity      = newGauge("humidity", "Humidity (units: % of relative Humidity)")

	framesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "co2monitor",
			Name:      "frames_total",
			Help:      "Reports received from the monitor, by decode outcome.",
		},
		[]string{"outcome"},
	)
)

func newGauge(name string, help string) prometheus.Gauge {
	return prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: "co2monitor",
			Name:      name,
			Help:      help,
		},
	)
}

func init() {
	prometheus.MustRegister(gaugeTemperature)
	prometheus.MustRegister(gaugeConcentration)
	prometheus.MustRegister(gaugeHumidity)
	prometheus.MustRegister(framesTotal)

	// Add Go module build info.
	prometheus.MustRegister(prometheus.NewBuildInfoCollector())

	//logging
	formatter := &log.TextFormatter{
		FullTimestamp: true,
	}
	log.SetFormatter(formatter)
}

type config struct {
	listen  string
	key     co2monitor.Frame
	timeout time.Duration
	debug   bool
}

type fileConfig struct {
	ListenAddress string `yaml:"listen_address"`
	Key           string `yaml:"key"`
	Timeout       string `yaml:"timeout"`
	Debug         bool   `yaml:"debug"`
}

func loadConfig() (config, error) {
	cfg := config{
		listen:  *listenAddr,
		timeout: *readTimeout,
		debug:   *debug,
	}
	key := *keyHex

	if *configPath != "" {
		raw, err := os.ReadFile(*configPath)
		if err != nil {
			return cfg, err
		}
		var fc fileConfig
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return cfg, fmt.Errorf("failed to parse %s: %w", *configPath, err)
		}

		set := map[string]bool{}
		flag.Visit(func(f *flag.Flag) { set[f.Name] = true })

		if fc.ListenAddress != "" && !set["listen-address"] {
			cfg.listen = fc.ListenAddress
		}
		if fc.Key != "" && !set["key"] {
			key = fc.Key
		}
		if fc.Timeout != "" && !set["timeout"] {
			d, err := time.ParseDuration(fc.Timeout)
			if err != nil {
				return cfg, fmt.Errorf("bad timeout in %s: %w", *configPath, err)
			}
			cfg.timeout = d
		}
		if fc.Debug && !set["debug"] {
			cfg.debug = true
		}
	}

	if key != "" {
		raw, err := hex.DecodeString(key)
		if err != nil || len(raw) != len(cfg.key) {
			return cfg, fmt.Errorf("key must be %d hex digits, got %q", 2*len(cfg.key), key)
		}
		copy(cfg.key[:], raw)
	}

	return cfg, nil
}

func main() {
	flag.Parse()

	cfg, err := loadConfig()
	if err != nil {
		log.Fatalf("bad configuration: %s", err)
	}

	session, err := zyaura.NewBuilder().
		Key(cfg.key).
		Timeout(cfg.timeout).
		Debug(cfg.debug).
		Open()
	if err != nil {
		log.Fatalf("failed to open monitor: %s", err)
	}

	go func() {
		// Expose the registered metrics via HTTP.
		http.Handle("/metrics", promhttp.HandlerFor(
			prometheus.DefaultGatherer,
			promhttp.HandlerOpts{
				// Opt into OpenMetrics to support exemplars.
				EnableOpenMetrics: true,
			},
		))
		log.Panic(http.ListenAndServe(cfg.listen, nil))
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		s := <-sigs
		log.Printf("received %s, closing monitor", s)
		_ = session.Close()
		os.Exit(0)
	}()

	for {
		event, err := session.Read()
		if err != nil {
			_ = session.Close()
			log.Fatalf("monitor read failed: %s", err)
		}
		export(event)
	}
}

func export(event co2monitor.Event) {
	switch e := event.(type) {
	case co2monitor.AmbientTemperature:
		framesTotal.WithLabelValues("ambient_temperature").Inc()
		gaugeTemperature.Set(e.Celsius)
	case co2monitor.RelativeConcentration:
		framesTotal.WithLabelValues("relative_concentration").Inc()
		gaugeConcentration.Set(float64(e.PPM))
	case co2monitor.Humidity:
		framesTotal.WithLabelValues("humidity").Inc()
		gaugeHumidity.Set(e.Percent)
	case co2monitor.WrongPacket:
		framesTotal.WithLabelValues("wrong_packet").Inc()
	case co2monitor.ChecksumError:
		framesTotal.WithLabelValues("checksum_error").Inc()
	case co2monitor.UninitializedData:
		framesTotal.WithLabelValues("uninitialized_data").Inc()
	case co2monitor.UnexpectedData:
		framesTotal.WithLabelValues("unexpected_data").Inc()
	case co2monitor.UnknownCode:
		framesTotal.WithLabelValues("unknown_code").Inc()
	}
}
