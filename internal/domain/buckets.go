package domain

// GlobalBucket is the bucket every result lands in.
const GlobalBucket = "global"

// Buckets derives the ranking buckets a result contributes to. The output
// order is fixed and depends only on which fields are set.
func Buckets(r QuizResult) []string {
	buckets := make([]string, 0, 7)
	buckets = append(buckets, GlobalBucket)
	if r.State != "" {
		buckets = append(buckets, "state:"+r.State)
		if r.District != "" {
			buckets = append(buckets, "district:"+r.State+"-"+r.District)
		}
	}
	if r.CourseID != "" {
		buckets = append(buckets, "course:"+r.CourseID)
		if r.SubjectID != "" {
			buckets = append(buckets, "subject:"+r.CourseID+"|"+r.SubjectID)
		}
	}
	if r.BoardID != "" {
		buckets = append(buckets, "board:"+r.BoardID)
	}
	if r.ExamID != "" {
		buckets = append(buckets, "exam:"+r.ExamID)
	}
	return buckets
}
