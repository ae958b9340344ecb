package handel

// PeriodTimeMs is the cadence at which a node starts a new aggregation
// round. Treated as a protocol constant rather than a tunable parameter,
// so it is not a Parameters field.
const PeriodTimeMs = 1000

// Parameters configures one Handel run. Field names follow the protocol's
// flat YAML key/value convention.
type Parameters struct {
	// NodeCount is the number of participating nodes.
	NodeCount int `yaml:"nodeCount"`
	// PairingTimeMs is the simulated cost of one verification, before
	// SpeedRatio scaling.
	PairingTimeMs int `yaml:"pairingTimeMs"`
	// DisseminationPeriodMs is how often a node recomputes its outgoing
	// aggregate and sends it down the level peer lists.
	DisseminationPeriodMs int `yaml:"disseminationPeriodMs"`
	// VerifyPeriodMs is how often a node picks and schedules its next
	// pairing check.
	VerifyPeriodMs int `yaml:"verifyPeriodMs"`
	// NodeBuilderName and NetworkLatencyName select this protocol's
	// position generator and latency model by name.
	NodeBuilderName    string `yaml:"nodeBuilderName"`
	NetworkLatencyName string `yaml:"networkLatencyName"`
	// Seed drives every RNG draw the Network and Protocol make.
	Seed int64 `yaml:"seed"`
}

// DefaultParameters returns a reasonable single-region Handel run.
func DefaultParameters() Parameters {
	return Parameters{
		NodeCount:             32,
		PairingTimeMs:         100,
		DisseminationPeriodMs: 20,
		VerifyPeriodMs:        10,
		NodeBuilderName:       "random",
		NetworkLatencyName:    "NetworkLatencyByDistance",
	}
}
