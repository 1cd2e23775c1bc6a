package tools

import (
	"github.com/plantops/opsbrief/pkg/models"
)

// citationFromResult builds the mandatory database citation for any
// DataResult a tool consumed: source table and query timestamp come
// from the envelope, the excerpt summarizes the evidence.
func citationFromResult[T any](dr models.DataResult[T], excerpt string, assetName string) models.Citation {
	ts := dr.QueryTimestamp
	date := ""
	if !ts.IsZero() {
		date = ts.Format("2006-01-02")
	}
	return models.Citation{
		SourceType:  models.SourceDatabase,
		SourceTable: dr.TableName,
		Timestamp:   &ts,
		Excerpt:     excerpt,
		Confidence:  1.0,
		DisplayText: models.DatabaseCitationTag(dr.TableName, date, assetName),
	}
}

// recordCitation builds a database citation pinned to one source row.
func recordCitation[T any](dr models.DataResult[T], recordID, assetID, assetName, date, excerpt string) models.Citation {
	ts := dr.QueryTimestamp
	return models.Citation{
		SourceType:  models.SourceDatabase,
		SourceTable: dr.TableName,
		RecordID:    recordID,
		AssetID:     assetID,
		Timestamp:   &ts,
		Excerpt:     excerpt,
		Confidence:  1.0,
		DisplayText: models.DatabaseCitationTag(dr.TableName, date, assetName),
	}
}

// calculationCitation records a derived value: the excerpt names the
// rates and formulas used.
func calculationCitation(name, excerpt string) models.Citation {
	return models.Citation{
		SourceType:  models.SourceCalculation,
		Excerpt:     excerpt,
		Confidence:  1.0,
		DisplayText: models.CalculationCitationTag(name),
	}
}
