package treeow

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/lboswell/treeow-core/internal/attribute"
	"github.com/lboswell/treeow-core/internal/device"
)

func newTestClient(t *testing.T, api *apiRecorder) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c := NewClient(Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	c.SetAccessToken("test-token")
	return c
}

func groupListHandler(groupIDs ...string) http.HandlerFunc {
	groups := make([]map[string]any, 0, len(groupIDs))
	for _, id := range groupIDs {
		groups = append(groups, map[string]any{"id": id})
	}
	return okEnvelope([]map[string]any{{"homeGroups": groups}})
}

func TestClient_GroupsCached(t *testing.T) {
	api := newAPIRecorder()
	api.handle(pathHomeList, groupListHandler("group-1", "group-2"))
	c := newTestClient(t, api)

	now := time.Now()
	c.now = func() time.Time { return now }

	for i := 0; i < 3; i++ {
		groups, err := c.Groups(context.Background())
		if err != nil {
			t.Fatalf("Groups() error = %v", err)
		}
		if len(groups) != 2 {
			t.Fatalf("Groups() = %v", groups)
		}
	}
	if got := api.count(pathHomeList); got != 1 {
		t.Errorf("home list fetched %d times within TTL, want 1", got)
	}

	now = now.Add(time.Hour + time.Second)
	if _, err := c.Groups(context.Background()); err != nil {
		t.Fatalf("Groups() after TTL error = %v", err)
	}
	if got := api.count(pathHomeList); got != 2 {
		t.Errorf("home list fetched %d times after TTL, want 2", got)
	}
}

func TestClient_DevicesGroupFailureIsolated(t *testing.T) {
	api := newAPIRecorder()
	api.handle(pathHomeList, groupListHandler("good", "bad"))
	api.handle(pathDeviceList, func(w http.ResponseWriter, r *http.Request) {
		var payload map[string]string
		json.NewDecoder(r.Body).Decode(&payload)

		if payload["groupId"] == "bad" {
			rejectEnvelope(500, "backend exploded")(w, r)
			return
		}
		if payload["pageSize"] != "50" || payload["pageNo"] != "1" {
			t.Errorf("unexpected paging: %v", payload)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"meta": map[string]any{"code": 200, "message": "ok"},
			"data": []map[string]any{
				{
					"id":           "dev-1",
					"deviceName":   "Air Purifier",
					"deviceSerial": "AP100:0001",
					"category":     "x5c",
					"version":      3,
					"props": []map[string]any{
						{"resourceCategory": "cat9", "localIndex": 1},
					},
				},
			},
		})
	})
	c := newTestClient(t, api)

	infos, err := c.Devices(context.Background())
	if err != nil {
		t.Fatalf("Devices() error = %v", err)
	}
	if len(infos) != 1 {
		t.Fatalf("Devices() = %d devices, want 1 (bad group isolated)", len(infos))
	}

	info := infos[0]
	if info.ID != "dev-1" || info.Name != "Air Purifier" {
		t.Errorf("identity = %q/%q", info.ID, info.Name)
	}
	if info.GroupID != "good" {
		t.Errorf("GroupID = %q, want good", info.GroupID)
	}
	// Numeric vendor fields arrive as strings on our side.
	if info.SchemaVersion != "3" || info.LocalIndex != "1" || info.ResourceCategory != "cat9" {
		t.Errorf("flexible fields = %q/%q/%q", info.SchemaVersion, info.LocalIndex, info.ResourceCategory)
	}
}

func TestClient_DigitalModel(t *testing.T) {
	api := newAPIRecorder()
	api.handle(pathDeviceList, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"meta": map[string]any{"code": 200, "message": "ok"},
			"data": []any{},
			"profiles": map[string]any{
				"PV(productId=AP100, version=3)": map[string]any{
					"resources": []map[string]any{
						{
							"domains": []map[string]any{
								{
									"identifier": "x5c",
									"props": []map[string]any{
										{"identifier": "temperature", "accessMode": "r"},
										{"identifier": "power", "accessMode": "rw"},
									},
								},
								{
									// Another appliance family sharing the resource.
									"identifier": "other",
									"props": []map[string]any{
										{"identifier": "unrelated", "accessMode": "r"},
									},
								},
							},
						},
					},
				},
			},
		})
	})
	c := newTestClient(t, api)

	info := device.Info{ID: "dev-1", Serial: "AP100:0001", Category: "x5c", SchemaVersion: "3", GroupID: "g"}
	attrs, err := c.DigitalModel(context.Background(), info)
	if err != nil {
		t.Fatalf("DigitalModel() error = %v", err)
	}
	if len(attrs) != 2 {
		t.Fatalf("DigitalModel() = %d attrs, want 2 (category filtered)", len(attrs))
	}
	if attrs[0].Identifier != "temperature" || attrs[1].Identifier != "power" {
		t.Errorf("attrs = %v", attrs)
	}
}

func TestClient_DigitalModelMalformedSerial(t *testing.T) {
	api := newAPIRecorder()
	c := newTestClient(t, api)

	info := device.Info{ID: "dev-1", Serial: "no-colon", SchemaVersion: "3"}
	attrs, err := c.DigitalModel(context.Background(), info)
	if err != nil {
		t.Fatalf("DigitalModel() error = %v", err)
	}
	if attrs != nil {
		t.Errorf("attrs = %v, want empty model", attrs)
	}
	if api.count(pathDeviceList) != 0 {
		t.Error("malformed serial still hit the cloud")
	}
}

func TestClient_CachedModelAvoidsRefetch(t *testing.T) {
	api := newAPIRecorder()
	api.handle(pathDeviceList, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"meta": map[string]any{"code": 200, "message": "ok"},
			"profiles": map[string]any{
				"PV(productId=AP100, version=3)": map[string]any{
					"resources": []map[string]any{
						{"domains": []map[string]any{
							{"identifier": "x5c", "props": []map[string]any{{"identifier": "temperature"}}},
						}},
					},
				},
			},
		})
	})
	c := newTestClient(t, api)
	cache := NewModelCache(time.Hour)

	info := device.Info{ID: "dev-1", Serial: "AP100:0001", Category: "x5c", SchemaVersion: "3", GroupID: "g"}
	for i := 0; i < 3; i++ {
		attrs, err := c.CachedModel(context.Background(), cache, info)
		if err != nil {
			t.Fatalf("CachedModel() error = %v", err)
		}
		if len(attrs) != 1 {
			t.Fatalf("CachedModel() = %v", attrs)
		}
	}
	if got := api.count(pathDeviceList); got != 1 {
		t.Errorf("schema fetched %d times within TTL, want 1", got)
	}

	// A schema version bump must force a refetch even though the TTL holds.
	info.SchemaVersion = "4"
	if _, err := c.CachedModel(context.Background(), cache, info); err != nil {
		t.Fatalf("CachedModel() after version bump error = %v", err)
	}
	if got := api.count(pathDeviceList); got != 2 {
		t.Errorf("schema fetched %d times after version bump, want 2", got)
	}
}

func TestClient_Snapshot(t *testing.T) {
	inner, _ := json.Marshal(map[string]any{
		"x5c": map[string]any{
			"temperature": 235,
			"power":       true,
			"ghost":       1, // not in the model, must be dropped
		},
	})

	api := newAPIRecorder()
	api.handle(pathDeviceInfo, okEnvelope(map[string]any{
		"id":       "dev-1",
		"category": "x5c",
		"props":    []map[string]any{{"value": string(inner)}},
	}))
	c := newTestClient(t, api)

	info := device.Info{ID: "dev-1", Category: "x5c"}
	model := []attribute.RawAttribute{
		{Identifier: "temperature"},
		{Identifier: "power"},
		{Identifier: "absent"},
	}

	values, err := c.Snapshot(context.Background(), info, model)
	if err != nil {
		t.Fatalf("Snapshot() error = %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("Snapshot() = %v, want 2 intersected keys", values)
	}
	if values["temperature"] != float64(235) || values["power"] != true {
		t.Errorf("Snapshot() = %v", values)
	}
	if _, ok := values["ghost"]; ok {
		t.Error("key outside the model leaked into the snapshot")
	}
}

func TestClient_SendCommandVerifiesReadback(t *testing.T) {
	value := any(nil)
	api := newAPIRecorder()
	api.handle(pathDeviceProp, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("propidentifier"); got != "fan_speed_enum" {
			t.Errorf("propidentifier = %q", got)
		}
		if got := r.Header.Get("deviceserial"); got != "AP100:0001" {
			t.Errorf("deviceserial = %q", got)
		}

		switch r.Method {
		case http.MethodPut:
			var payload map[string]any
			json.NewDecoder(r.Body).Decode(&payload)
			value = payload["value"]
			okEnvelope(nil)(w, r)
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]any{
				"meta": map[string]any{"code": 200, "message": "ok"},
				"data": value,
			})
		}
	})
	c := newTestClient(t, api)

	info := device.Info{ID: "dev-1", Serial: "AP100:0001", Category: "x5c", LocalIndex: "1", ResourceCategory: "cat9"}
	if err := c.SendCommand(context.Background(), info, "fan_speed_enum", 3); err != nil {
		t.Fatalf("SendCommand() error = %v", err)
	}
}

func TestClient_SendCommandMismatchRejected(t *testing.T) {
	api := newAPIRecorder()
	api.handle(pathDeviceProp, func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPut {
			okEnvelope(nil)(w, r)
			return
		}
		json.NewEncoder(w).Encode(map[string]any{
			"meta": map[string]any{"code": 200, "message": "device busy"},
			"data": 1, // device kept its old value
		})
	})
	c := newTestClient(t, api)

	err := c.SendCommand(context.Background(), device.Info{ID: "dev-1"}, "mode", 3)
	if !errors.Is(err, ErrCommandRejected) {
		t.Fatalf("SendCommand() error = %v, want ErrCommandRejected", err)
	}
	if want := "device busy"; !strings.Contains(err.Error(), want) {
		t.Errorf("error %q does not carry the vendor message %q", err, want)
	}
}

func TestClient_SendHeartbeat(t *testing.T) {
	api := newAPIRecorder()
	api.handle(pathDeviceProp, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut {
			t.Errorf("heartbeat method = %s", r.Method)
		}
		if got := r.Header.Get("propidentifier"); got != "online_state" {
			t.Errorf("propidentifier = %q", got)
		}
		var payload map[string]any
		json.NewDecoder(r.Body).Decode(&payload)
		if payload["value"] != float64(0) {
			t.Errorf("heartbeat value = %v, want 0", payload["value"])
		}
		okEnvelope(nil)(w, r)
	})
	c := newTestClient(t, api)

	if err := c.SendHeartbeat(context.Background(), device.Info{ID: "dev-1"}); err != nil {
		t.Fatalf("SendHeartbeat() error = %v", err)
	}
}
