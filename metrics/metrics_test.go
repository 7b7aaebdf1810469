package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordRemoteOp(t *testing.T) {
	okBefore := testutil.ToFloat64(remoteOpsTotal.WithLabelValues("list", "ok"))
	errBefore := testutil.ToFloat64(remoteOpsTotal.WithLabelValues("list", "error"))

	RecordRemoteOp("list", nil, time.Now())
	RecordRemoteOp("list", errors.New("boom"), time.Now())
	RecordRemoteOp("list", nil, time.Now())

	assert.Equal(t, okBefore+2, testutil.ToFloat64(remoteOpsTotal.WithLabelValues("list", "ok")))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(remoteOpsTotal.WithLabelValues("list", "error")))
}

func TestRecordBatch(t *testing.T) {
	before := testutil.ToFloat64(batchItemsTotal.WithLabelValues("delete", "failed"))
	RecordBatch("delete", 3, 0, 2)
	assert.Equal(t, before+2, testutil.ToFloat64(batchItemsTotal.WithLabelValues("delete", "failed")))
}

func TestSessions(t *testing.T) {
	before := testutil.ToFloat64(activeSessions)
	SessionOpened()
	SessionOpened()
	SessionClosed()
	assert.Equal(t, before+1, testutil.ToFloat64(activeSessions))
}

func TestHandler(t *testing.T) {
	RecordUpload(42)

	rec := httptest.NewRecorder()
	Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "pinas_bytes_uploaded_total")
}
