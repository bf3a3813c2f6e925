package agent

// NewAnalysisCatalog builds the standard operation catalog: dataset
// overview, row sampling, column search, descriptive statistics, missing
// value counts, value counts, correlation and chart rendering. artifactDir
// is where the chart operation writes its PNG files.
func NewAnalysisCatalog(artifactDir string, log func(string)) (*Catalog, error) {
	c := NewCatalog(log)
	ops := []*Operation{
		summaryOperation(),
		sampleOperation(),
		findColumnsOperation(),
		describeOperation(),
		missingValuesOperation(),
		valueCountsOperation(),
		correlationOperation(),
		chartOperation(artifactDir),
	}
	for _, op := range ops {
		if err := c.Register(op); err != nil {
			return nil, err
		}
	}
	return c, nil
}
