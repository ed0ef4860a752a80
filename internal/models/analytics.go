package models

// FacultyRef is the faculty summary embedded in backend reports.
type FacultyRef struct {
	ID        string `json:"_id"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
}

// FullName joins first and last name.
func (f FacultyRef) FullName() string {
	switch {
	case f.FirstName == "":
		return f.LastName
	case f.LastName == "":
		return f.FirstName
	}
	return f.FirstName + " " + f.LastName
}

// BusinessOverviewItem is one batch subject row of the business overview.
type BusinessOverviewItem struct {
	BatchID           string     `json:"batchId"`
	BatchName         string     `json:"batchName"`
	SubjectID         string     `json:"subjectId"`
	SubjectTitle      string     `json:"subjectTitle"`
	FacultyID         string     `json:"facultyId"`
	Faculty           FacultyRef `json:"faculty"`
	TotalLectures     int        `json:"totalLectures"`
	CompletedLectures int        `json:"completedLectures"`
	RemainingLectures int        `json:"remainingLectures"`
	CompletionRate    float64    `json:"completionRate"`
	LastLecture       *string    `json:"lastLecture"`
}

// BatchCompletion is the per batch figure of the business analytics report.
type BatchCompletion struct {
	ID                string  `json:"_id"`
	BatchID           string  `json:"batchId"`
	BatchName         string  `json:"batchName"`
	TotalLectures     int     `json:"totalLectures"`
	CompletedLectures int     `json:"completedLectures"`
	CompletionRate    float64 `json:"completionRate"`
}

// BusinessAnalytics is the backend institution-wide summary.
type BusinessAnalytics struct {
	TotalTeachers   int               `json:"totalTeachers"`
	ActiveBatches   int               `json:"activeBatches"`
	ActiveCourses   int               `json:"activeCourses"`
	BatchCompletion []BatchCompletion `json:"batchCompletion"`
}

// FacultyAnalytics is the backend summary for the signed-in faculty member.
type FacultyAnalytics struct {
	TotalBatches      int     `json:"totalBatches"`
	TotalSubjects     int     `json:"totalSubjects"`
	TotalLectures     int     `json:"totalLectures"`
	CompletedLectures int     `json:"completedLectures"`
	CompletionRate    float64 `json:"completionRate"`
}
