package export

import (
	"context"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gcombe/batnet-go/internal/conf"
	"github.com/gcombe/batnet-go/internal/errors"
)

func newTestClient(t *testing.T) *Client {
	t.Helper()

	settings := &conf.Settings{}
	settings.Export.Endpoint = "https://gis.example.com/FeatureServer"
	settings.Export.Token = "secret-token"
	settings.Export.RecordTable = "1"

	client := NewClient(settings)
	hc := &http.Client{}
	httpmock.ActivateNonDefault(hc)
	t.Cleanup(httpmock.DeactivateAndReset)
	client.SetHTTPClient(hc)
	return client
}

func testRows() []Row {
	return []Row{
		{FileName: "a.wav", DeploymentID: 7, ClassName: "Myotis daubentonii", RecordingNight: "2022-05-14", Duration: 5},
		{FileName: "b.wav", DeploymentID: 7, ClassName: "Myotis daubentonii", RecordingNight: "2022-05-14", Duration: 5},
	}
}

func TestAddFeatures(t *testing.T) {
	client := newTestClient(t)

	var gotFeatures string
	httpmock.RegisterResponder("POST", "https://gis.example.com/FeatureServer/1/addFeatures",
		func(req *http.Request) (*http.Response, error) {
			require.NoError(t, req.ParseForm())
			gotFeatures = req.PostForm.Get("features")
			assert.Equal(t, "secret-token", req.PostForm.Get("token"))
			return httpmock.NewStringResponse(200,
				`{"addResults": [{"objectId": 101, "success": true}, {"objectId": 102, "success": true}]}`), nil
		})

	require.NoError(t, client.AddFeatures(context.Background(), testRows()))

	var decoded []struct {
		Attributes Row `json:"attributes"`
	}
	require.NoError(t, json.Unmarshal([]byte(gotFeatures), &decoded))
	require.Len(t, decoded, 2)
	assert.Equal(t, "a.wav", decoded[0].Attributes.FileName)
}

func TestAddFeaturesEmptyBatch(t *testing.T) {
	client := newTestClient(t)
	// No responder registered: an empty batch must not touch the network.
	assert.NoError(t, client.AddFeatures(context.Background(), nil))
}

func TestAddFeaturesRejectedFeature(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", "https://gis.example.com/FeatureServer/1/addFeatures",
		httpmock.NewStringResponder(200,
			`{"addResults": [{"objectId": 101, "success": true}, {"success": false, "error": {"code": 1000, "description": "Field type mismatch."}}]}`))

	err := client.AddFeatures(context.Background(), testRows())
	require.Error(t, err)
	assert.True(t, errors.IsCategory(err, errors.CategoryNetwork))
	assert.Contains(t, err.Error(), "Field type mismatch")
}

func TestAddFeaturesServiceError(t *testing.T) {
	client := newTestClient(t)

	httpmock.RegisterResponder("POST", "https://gis.example.com/FeatureServer/1/addFeatures",
		httpmock.NewStringResponder(200, `{"error": {"code": 498, "message": "Invalid token."}}`))

	err := client.AddFeatures(context.Background(), testRows())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Invalid token")
}
