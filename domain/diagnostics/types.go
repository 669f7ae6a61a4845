package diagnostics

import (
	"bytes"
	"math"
	"strconv"

	"nhldiag/domain/core"
)

// Verdict classifies the relationship between two numeric columns
type Verdict string

const (
	VerdictLinear             Verdict = "linear"
	VerdictNonlinearMonotonic Verdict = "nonlinear_monotonic"
	VerdictNoRelationship     Verdict = "no_relationship"
)

// ColumnPair names two numeric columns designated for relationship analysis
type ColumnPair struct {
	X string `json:"x"`
	Y string `json:"y"`
}

// PairCorrelation holds Pearson and Spearman coefficients for a column pair
type PairCorrelation struct {
	ColumnX    string  `json:"column_x"`
	ColumnY    string  `json:"column_y"`
	Pearson    float64 `json:"pearson"`
	PearsonP   float64 `json:"pearson_p"`
	Spearman   float64 `json:"spearman"`
	SpearmanP  float64 `json:"spearman_p"`
	SampleSize int     `json:"sample_size"`
}

// ModelFit holds the coefficients of a single fitted polynomial model.
// Coefficients are in ascending degree order, intercept first.
type ModelFit struct {
	Degree       int       `json:"degree"`
	Coefficients []float64 `json:"coefficients"`
	RSquared     float64   `json:"r_squared"`
}

// Slope returns the first-degree coefficient
func (m ModelFit) Slope() float64 {
	if len(m.Coefficients) > 1 {
		return m.Coefficients[1]
	}
	return 0
}

// Intercept returns the zero-degree coefficient
func (m ModelFit) Intercept() float64 {
	if len(m.Coefficients) > 0 {
		return m.Coefficients[0]
	}
	return 0
}

// Residuals is a row-aligned residual sequence. Entries for rows excluded
// from the fit are NaN and serialize as JSON null.
type Residuals []float64

// MarshalJSON writes NaN entries as null so reports stay serializable
func (r Residuals) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('[')
	for i, v := range r {
		if i > 0 {
			buf.WriteByte(',')
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			buf.WriteString("null")
		} else {
			buf.WriteString(strconv.FormatFloat(v, 'g', -1, 64))
		}
	}
	buf.WriteByte(']')
	return buf.Bytes(), nil
}

// ModelFitResult aggregates linear and quadratic OLS fits for one pair
type ModelFitResult struct {
	Predictor          string    `json:"predictor"`
	Target             string    `json:"target"`
	Linear             ModelFit  `json:"linear"`
	Quadratic          ModelFit  `json:"quadratic"`
	Residuals          Residuals `json:"residuals"`
	DeltaRSquared      float64   `json:"delta_r_squared"`
	ResidualFittedCorr float64   `json:"residual_fitted_corr"`
	Heteroscedastic    bool      `json:"heteroscedastic"`
	SampleSize         int       `json:"sample_size"`
}

// DistributionFit holds one fitted candidate family and its fit score
type DistributionFit struct {
	Family        string             `json:"family"`
	Params        map[string]float64 `json:"params"`
	LogLikelihood float64            `json:"log_likelihood"`
	KSStatistic   float64            `json:"ks_statistic"`
}

// DistributionFitResult ranks candidate families for one column, best first
type DistributionFitResult struct {
	Column     string            `json:"column"`
	Ranked     []DistributionFit `json:"ranked"`
	SampleSize int               `json:"sample_size"`
}

// Best returns the top-ranked fit
func (r DistributionFitResult) Best() (DistributionFit, bool) {
	if len(r.Ranked) == 0 {
		return DistributionFit{}, false
	}
	return r.Ranked[0], true
}

// ColumnProfile holds robust location and spread statistics for one column
type ColumnProfile struct {
	Column       string             `json:"column"`
	Count        int                `json:"count"`
	MissingRate  float64            `json:"missing_rate"`
	Mean         float64            `json:"mean"`
	Median       float64            `json:"median"`
	TrimmedMean  float64            `json:"trimmed_mean"`
	MAD          float64            `json:"mad"`
	Variance     float64            `json:"variance"`
	StdDev       float64            `json:"std_dev"`
	IQR          float64            `json:"iqr"`
	LowerBound   float64            `json:"lower_bound"`
	UpperBound   float64            `json:"upper_bound"`
	OutlierCount int                `json:"outlier_count"`
	Percentiles  map[string]float64 `json:"percentiles"`
}

// PairDiagnostics is the complete analysis of one column pair
type PairDiagnostics struct {
	Pair        ColumnPair      `json:"pair"`
	Correlation PairCorrelation `json:"correlation"`
	Models      ModelFitResult  `json:"models"`
	Verdict     Verdict         `json:"verdict"`
	Reasons     []string        `json:"reasons,omitempty"`
}

// SkippedPair records why a pair was excluded from a sweep
type SkippedPair struct {
	Pair   ColumnPair `json:"pair"`
	Reason string     `json:"reason"`
}

// DiagnosticsReport is the immutable output of one pipeline run.
// It is fully populated at construction; a failed stage never yields
// a partially filled report.
type DiagnosticsReport struct {
	RunID              core.RunID                       `json:"run_id"`
	DatasetFingerprint core.Fingerprint                 `json:"dataset_fingerprint"`
	CreatedAt          core.Timestamp                   `json:"created_at"`
	Pairs              []PairDiagnostics                `json:"pairs"`
	Skipped            []SkippedPair                    `json:"skipped,omitempty"`
	Profiles           map[string]ColumnProfile         `json:"profiles,omitempty"`
	Distributions      map[string]DistributionFitResult `json:"distributions,omitempty"`
}
