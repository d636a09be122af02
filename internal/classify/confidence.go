package classify

// AnalysisConfidence scores how complete a document analysis is. Each piece
// of structure the model found contributes a fixed weight, with the largest
// share going to the line items themselves.
func AnalysisConfidence(a *DocumentAnalysis) float64 {
	if a == nil {
		return 0
	}

	score := 0.0
	if a.DocumentInfo.Number != "" {
		score += 0.15
	}
	if a.DocumentInfo.Vendor != "" {
		score += 0.15
	}
	if a.FinancialSummary.Total != "" {
		score += 0.20
	}
	if len(a.Transactions) > 0 {
		score += 0.20

		sum := 0.0
		for _, tx := range a.Transactions {
			sum += tx.Confidence
		}
		score += 0.30 * (sum / float64(len(a.Transactions)))
	}
	return score
}
