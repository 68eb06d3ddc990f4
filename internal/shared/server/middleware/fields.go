package middleware

import "github.com/gin-gonic/gin"

// Keys read by Logging when it writes the request line.
const (
	resumeIDKey   = "resumeId"
	analysisIDKey = "analysisId"
	transitionKey = "statusTransition"
)

// SetResumeID tags the request log with the resume being acted on.
func SetResumeID(c *gin.Context, id string) { c.Set(resumeIDKey, id) }

// SetAnalysisID tags the request log with the analysis being acted on.
func SetAnalysisID(c *gin.Context, id string) { c.Set(analysisIDKey, id) }

// SetTransition records the status change a request caused, e.g. "success->pending".
func SetTransition(c *gin.Context, from, to string) { c.Set(transitionKey, from+"->"+to) }
