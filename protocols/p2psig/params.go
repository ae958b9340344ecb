package p2psig

// SendSigsStrategy selects how sendSigs picks which signatures to offer a
// peer.
type SendSigsStrategy string

const (
	// StrategyAll sends every verified signature, ignoring peer state.
	StrategyAll SendSigsStrategy = "all"
	// StrategyDiff sends only the signatures the peer is missing.
	StrategyDiff SendSigsStrategy = "dif"
	// StrategyCompressAll sends all signatures, compressed.
	StrategyCompressAll SendSigsStrategy = "cmp_all"
	// StrategyCompressDiff sends the full set, counted on the wire as the
	// smaller of the full set's and the diff's compressed size.
	StrategyCompressDiff SendSigsStrategy = "cmp_diff"
)

// Parameters configures one P2PSignature run. Field names follow the
// protocol's flat YAML key/value convention: scenario files load directly
// into this struct via gopkg.in/yaml.v3 struct tags.
type Parameters struct {
	// SigningNodeCount is the number of nodes participating in signing.
	SigningNodeCount int `yaml:"signingNodeCount"`
	// RelayingNodeCount is the number of nodes participating without
	// signing -- pure message relays.
	RelayingNodeCount int `yaml:"relayingNodeCount"`
	// Threshold is the signature count needed to finish.
	Threshold int `yaml:"threshold"`
	// ConnectionCount is the typical peer degree; at least 3.
	ConnectionCount int `yaml:"connectionCount"`
	// PairingTimeMs is the simulated cost of one pairing check.
	PairingTimeMs int `yaml:"pairingTimeMs"`
	// SigsSendPeriodMs is how often a node offers peers missing sigs.
	SigsSendPeriodMs int `yaml:"sigsSendPeriodMs"`
	// DoubleAggregateStrategy selects checkSigs2 (aggregate-then-verify)
	// over checkSigs1 (verify-the-best-set) when true.
	DoubleAggregateStrategy bool `yaml:"doubleAggregateStrategy"`
	// WithState governs whether nodes push State messages to peers on
	// every verified-signature change.
	WithState bool `yaml:"withState"`
	// SanFermin enables the San Fermin overlay alongside gossip.
	SanFermin bool `yaml:"sanFermin"`
	// SigRange is the compression window size, in bits.
	SigRange int `yaml:"sigRange"`
	// SendSigsStrategy selects which signatures sendSigs offers a peer.
	// Forced to StrategyCompressAll when SanFermin is true, matching the
	// original constructor's behavior.
	SendSigsStrategy SendSigsStrategy `yaml:"sendSigsStrategy"`
	// NodeBuilderName and NetworkLatencyName select this protocol's
	// position generator and latency model by name (resolved in New through
	// nodebuilder.Named and latency.Named).
	NodeBuilderName    string `yaml:"nodeBuilderName"`
	NetworkLatencyName string `yaml:"networkLatencyName"`
	// Seed drives every RNG draw the Network makes for this run.
	Seed int64 `yaml:"seed"`
}

// DefaultParameters returns a zero-arg-constructor-style default: 100
// signers, 20 relays, San Fermin enabled, compress-all gossip.
func DefaultParameters() Parameters {
	return Parameters{
		SigningNodeCount:        100,
		RelayingNodeCount:       20,
		Threshold:               99,
		ConnectionCount:         40,
		PairingTimeMs:           100,
		SigsSendPeriodMs:        1000,
		DoubleAggregateStrategy: true,
		WithState:               true,
		SanFermin:               true,
		SigRange:                20,
		SendSigsStrategy:        StrategyCompressAll,
	}
}

// normalized returns p with SendSigsStrategy forced to StrategyCompressAll
// whenever SanFermin is set, matching the original's constructor.
func (p Parameters) normalized() Parameters {
	if p.SanFermin {
		p.SendSigsStrategy = StrategyCompressAll
	}
	return p
}
