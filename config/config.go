package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del motor. Es inmutable tras Load:
// cada componente recibe su sección en construcción y nunca lee estado
// ambiente en tiempo de decisión.
type Config struct {
	Engine      EngineConfig   `yaml:"engine"`
	Strategy    StrategyConfig `yaml:"strategy"`
	Risk        RiskConfig     `yaml:"risk"`
	Sizing      SizingConfig   `yaml:"sizing"`
	Scale       ScaleConfig    `yaml:"scale"`
	Markets     []MarketConfig `yaml:"markets"`
	MarketsFile string         `yaml:"markets_file"` // alternativa a la lista inline
	API         APIConfig      `yaml:"api"`
	Storage     StorageConfig  `yaml:"storage"`
	Log         LogConfig      `yaml:"log"`
}

// EngineConfig controla el loop de ticks.
type EngineConfig struct {
	IntervalSeconds     int     `yaml:"interval_seconds"`
	CallTimeoutSeconds  int     `yaml:"call_timeout_seconds"` // timeout por llamada externa
	BackoffMaxSeconds   int     `yaml:"backoff_max_seconds"`  // techo del backoff exponencial
	StartingBalanceUSDC float64 `yaml:"starting_balance_usdc"`
	KillFile            string  `yaml:"kill_file"` // presencia del archivo = kill-switch activo
}

// StrategyConfig selecciona y parametriza la estrategia de edge.
type StrategyConfig struct {
	Mode           string `yaml:"mode"` // lead_lag | pm_trend | pm_draw
	LookbackPoints int    `yaml:"lookback_points"`

	// lead_lag
	SpotMoveMinPct    float64 `yaml:"spot_move_min_pct"`
	EdgeMinPct        float64 `yaml:"edge_min_pct"`
	EdgeExitPct       float64 `yaml:"edge_exit_pct"`
	MaxHoldSecs       int     `yaml:"max_hold_secs"`
	PmStopPct         float64 `yaml:"pm_stop_pct"` // puntos porcentuales de caída desde entry
	NoiseWindowPoints int     `yaml:"noise_window_points"`
	NoiseMult         float64 `yaml:"noise_mult"`
	SpreadMoveMult    float64 `yaml:"spread_move_mult"`

	// pm_trend
	MoveMinPct     float64 `yaml:"move_min_pct"`
	ExitMoveMinPct float64 `yaml:"exit_move_min_pct"`
	AutoSide       bool    `yaml:"auto_side"`

	// pm_draw
	BaselinePath   string  `yaml:"baseline_path"`
	MaxPriceGuard  float64 `yaml:"max_price_guard"`
	FavoriteFilter bool    `yaml:"favorite_filter"`
	FavMin         float64 `yaml:"fav_min"`
	FavMax         float64 `yaml:"fav_max"`
}

// RiskConfig parametriza los gates transversales previos a cada entrada.
type RiskConfig struct {
	FreshnessMaxAgeSecs  float64 `yaml:"freshness_max_age_secs"`
	AvoidPriceAbove      float64 `yaml:"avoid_price_above"`
	AvoidPriceBelow      float64 `yaml:"avoid_price_below"`
	SpreadCostCapPct     float64 `yaml:"spread_cost_cap_pct"`
	NetEdgeMinPct        float64 `yaml:"net_edge_min_pct"`
	MinTradeNotionalUSDC float64 `yaml:"min_trade_notional_usdc"`
	EstFeePct            float64 `yaml:"est_fee_pct"` // fracción, p.ej. 0.02 = 2%
}

// SizingConfig parametriza el sizing contra el orderbook.
type SizingConfig struct {
	OrderSizeShares        float64 `yaml:"order_size_shares"`
	SlippageCap            float64 `yaml:"slippage_cap"` // fracción del best price
	MaxFractionOfLiquidity float64 `yaml:"max_fraction_of_liquidity"`
	HardCapUSDC            float64 `yaml:"hard_cap_usdc"`
}

// ScaleConfig parametriza los scale-ins de posiciones abiertas.
type ScaleConfig struct {
	OnMovePct       float64 `yaml:"on_move_pct"` // movimiento favorable mínimo desde entry/último add
	CooldownSeconds int     `yaml:"cooldown_seconds"`
	MaxAdds         int     `yaml:"max_adds"`
	MaxTotalShares  float64 `yaml:"max_total_shares"`
	SizeMult        float64 `yaml:"size_mult"` // tamaño del add = base × mult
}

// MarketConfig describe un mercado tradeable del universo.
type MarketConfig struct {
	TokenID       string `yaml:"token_id"`
	Name          string `yaml:"name"`
	Side          string `yaml:"side"` // YES | NO | DRAW
	RefInstrument string `yaml:"ref_instrument"`
	SiblingToken  string `yaml:"sibling_token"`
	Group         string `yaml:"group"`
}

// APIConfig contiene los base URLs de los venues.
type APIConfig struct {
	CLOBBase   string `yaml:"clob_base"`
	KrakenBase string `yaml:"kraken_base"`
}

// StorageConfig controla dónde se persiste el trade log.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si
// existe, aplica defaults y valida. Un error de validación es fatal: el
// proceso debe abortar antes del primer tick.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}

	return &cfg, nil
}

// TickInterval devuelve el intervalo entre ticks como time.Duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.Engine.IntervalSeconds) * time.Second
}

// CallTimeout devuelve el timeout por llamada externa.
func (c *Config) CallTimeout() time.Duration {
	return time.Duration(c.Engine.CallTimeoutSeconds) * time.Second
}

// Validate comprueba los umbrales que no tienen default razonable.
// Cualquier error aquí es de configuración y debe parar el arranque.
func (c *Config) Validate() error {
	switch c.Strategy.Mode {
	case "lead_lag", "pm_trend", "pm_draw":
	default:
		return fmt.Errorf("strategy.mode %q: must be lead_lag, pm_trend or pm_draw", c.Strategy.Mode)
	}

	if len(c.Markets) == 0 && c.MarketsFile == "" {
		return fmt.Errorf("markets: at least one market (or markets_file) is required")
	}
	for i, m := range c.Markets {
		if m.TokenID == "" {
			return fmt.Errorf("markets[%d]: token_id is required", i)
		}
		switch m.Side {
		case "YES", "NO", "DRAW":
		default:
			return fmt.Errorf("markets[%d] %s: side %q: must be YES, NO or DRAW", i, m.TokenID, m.Side)
		}
		if c.Strategy.Mode == "lead_lag" && m.RefInstrument == "" {
			return fmt.Errorf("markets[%d] %s: lead_lag requires ref_instrument", i, m.TokenID)
		}
	}

	if c.Strategy.Mode == "pm_draw" && c.Strategy.BaselinePath == "" {
		return fmt.Errorf("strategy.baseline_path: required in pm_draw mode")
	}
	if c.Strategy.LookbackPoints < 1 {
		return fmt.Errorf("strategy.lookback_points %d: must be >= 1", c.Strategy.LookbackPoints)
	}

	if c.Risk.AvoidPriceBelow >= c.Risk.AvoidPriceAbove {
		return fmt.Errorf("risk: avoid_price_below %.3f must be < avoid_price_above %.3f",
			c.Risk.AvoidPriceBelow, c.Risk.AvoidPriceAbove)
	}
	if c.Sizing.SlippageCap <= 0 {
		return fmt.Errorf("sizing.slippage_cap %.4f: must be > 0", c.Sizing.SlippageCap)
	}
	if c.Scale.MaxAdds > 0 && c.Scale.SizeMult <= 0 {
		return fmt.Errorf("scale.size_mult %.3f: must be > 0 when scale-ins are enabled", c.Scale.SizeMult)
	}
	if c.Strategy.FavoriteFilter && c.Strategy.FavMin >= c.Strategy.FavMax {
		return fmt.Errorf("strategy: fav_min %.3f must be < fav_max %.3f", c.Strategy.FavMin, c.Strategy.FavMax)
	}
	if c.Engine.StartingBalanceUSDC <= 0 {
		return fmt.Errorf("engine.starting_balance_usdc %.2f: must be > 0", c.Engine.StartingBalanceUSDC)
	}

	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("KILLSWITCH_FILE"); v != "" {
		cfg.Engine.KillFile = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Engine.IntervalSeconds <= 0 {
		cfg.Engine.IntervalSeconds = 15
	}
	if cfg.Engine.CallTimeoutSeconds <= 0 {
		cfg.Engine.CallTimeoutSeconds = 10
	}
	if cfg.Engine.BackoffMaxSeconds <= 0 {
		cfg.Engine.BackoffMaxSeconds = 300
	}
	if cfg.Engine.StartingBalanceUSDC == 0 {
		cfg.Engine.StartingBalanceUSDC = 1000
	}
	if cfg.Engine.KillFile == "" {
		cfg.Engine.KillFile = "STOP"
	}

	if cfg.Strategy.Mode == "" {
		cfg.Strategy.Mode = "lead_lag"
	}
	if cfg.Strategy.LookbackPoints == 0 {
		cfg.Strategy.LookbackPoints = 6
	}
	if cfg.Strategy.SpotMoveMinPct == 0 {
		cfg.Strategy.SpotMoveMinPct = 0.25
	}
	if cfg.Strategy.EdgeMinPct == 0 {
		cfg.Strategy.EdgeMinPct = 0.20
	}
	if cfg.Strategy.EdgeExitPct == 0 {
		cfg.Strategy.EdgeExitPct = 0.05
	}
	if cfg.Strategy.MaxHoldSecs == 0 {
		cfg.Strategy.MaxHoldSecs = 180
	}
	if cfg.Strategy.PmStopPct == 0 {
		cfg.Strategy.PmStopPct = 0.25
	}
	if cfg.Strategy.NoiseWindowPoints == 0 {
		cfg.Strategy.NoiseWindowPoints = 40
	}
	if cfg.Strategy.NoiseMult == 0 {
		cfg.Strategy.NoiseMult = 2.0
	}
	if cfg.Strategy.SpreadMoveMult == 0 {
		cfg.Strategy.SpreadMoveMult = 1.0
	}
	if cfg.Strategy.MoveMinPct == 0 {
		cfg.Strategy.MoveMinPct = 1.0
	}
	if cfg.Strategy.ExitMoveMinPct == 0 {
		cfg.Strategy.ExitMoveMinPct = 0.2
	}
	if cfg.Strategy.MaxPriceGuard == 0 {
		cfg.Strategy.MaxPriceGuard = 0.45
	}
	if cfg.Strategy.FavMin == 0 {
		cfg.Strategy.FavMin = 0.40
	}
	if cfg.Strategy.FavMax == 0 {
		cfg.Strategy.FavMax = 0.70
	}

	if cfg.Risk.FreshnessMaxAgeSecs == 0 {
		cfg.Risk.FreshnessMaxAgeSecs = 60
	}
	if cfg.Risk.AvoidPriceAbove == 0 {
		cfg.Risk.AvoidPriceAbove = 0.90
	}
	if cfg.Risk.AvoidPriceBelow == 0 {
		cfg.Risk.AvoidPriceBelow = 0.02
	}
	if cfg.Risk.SpreadCostCapPct == 0 {
		cfg.Risk.SpreadCostCapPct = 1.00
	}
	if cfg.Risk.NetEdgeMinPct == 0 {
		cfg.Risk.NetEdgeMinPct = 0.05
	}
	if cfg.Risk.MinTradeNotionalUSDC == 0 {
		cfg.Risk.MinTradeNotionalUSDC = 5
	}

	if cfg.Sizing.OrderSizeShares == 0 {
		cfg.Sizing.OrderSizeShares = 10
	}
	if cfg.Sizing.SlippageCap == 0 {
		cfg.Sizing.SlippageCap = 0.02
	}
	if cfg.Sizing.MaxFractionOfLiquidity == 0 {
		cfg.Sizing.MaxFractionOfLiquidity = 0.10
	}
	if cfg.Sizing.HardCapUSDC == 0 {
		cfg.Sizing.HardCapUSDC = 2000
	}

	if cfg.Scale.OnMovePct == 0 {
		cfg.Scale.OnMovePct = 2.0
	}
	if cfg.Scale.CooldownSeconds == 0 {
		cfg.Scale.CooldownSeconds = 30
	}
	if cfg.Scale.MaxTotalShares == 0 {
		cfg.Scale.MaxTotalShares = 100
	}
	if cfg.Scale.SizeMult == 0 {
		cfg.Scale.SizeMult = 0.5
	}

	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.KrakenBase == "" {
		cfg.API.KrakenBase = "https://api.kraken.com/0/public"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "pmedge.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
