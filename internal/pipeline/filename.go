package pipeline

import "fmt"

// CandidateOutputFileName names a candidate's output file. Single-candidate
// jobs keep the plain job id; multi-candidate jobs append a __c{index}
// suffix. Candidate indexes are 1-based.
func CandidateOutputFileName(jobID string, index, total int) (string, error) {
	if index < 1 {
		return "", fmt.Errorf("candidate index must be 1-based, got %d", index)
	}
	if total <= 1 {
		return jobID + ".png", nil
	}
	return fmt.Sprintf("%s__c%d.png", jobID, index), nil
}
