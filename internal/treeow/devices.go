package treeow

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/lboswell/treeow-core/internal/attribute"
	"github.com/lboswell/treeow-core/internal/device"
)

// flexString tolerates the vendor sending identity fields as either JSON
// strings or numbers (localIndex and resourceCategory vary by firmware).
type flexString string

func (s *flexString) UnmarshalJSON(data []byte) error {
	text := strings.TrimSpace(string(data))
	if text == "null" {
		*s = ""
		return nil
	}
	if len(text) > 0 && text[0] == '"' {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*s = flexString(v)
		return nil
	}
	var num json.Number
	if err := json.Unmarshal(data, &num); err != nil {
		return fmt.Errorf("flexible string: %w", err)
	}
	*s = flexString(num.String())
	return nil
}

// deviceListPage is the device list endpoint's payload: the page of devices
// plus the capability schema profiles for every product on the page.
type deviceListPage struct {
	Data []struct {
		ID       string     `json:"id"`
		Name     string     `json:"deviceName"`
		Serial   string     `json:"deviceSerial"`
		Category flexString `json:"category"`
		Version  flexString `json:"version"`
		Props    []struct {
			ResourceCategory flexString `json:"resourceCategory"`
			LocalIndex       flexString `json:"localIndex"`
		} `json:"props"`
	} `json:"data"`
	Profiles map[string]struct {
		Resources []struct {
			Domains []struct {
				Identifier string                   `json:"identifier"`
				Props      []attribute.RawAttribute `json:"props"`
			} `json:"domains"`
		} `json:"resources"`
	} `json:"profiles"`
}

// Groups returns the home group IDs for the account. Results are cached;
// the group layout changes only when the user rearranges homes, so the
// cache TTL matches the capability schema TTL.
func (c *Client) Groups(ctx context.Context) ([]string, error) {
	c.groupsMu.Lock()
	defer c.groupsMu.Unlock()

	if c.groups != nil && c.now().Sub(c.groupsAt) < c.cfg.CacheTTL {
		return append([]string(nil), c.groups...), nil
	}

	body, _, err := c.request(ctx, http.MethodPost, pathHomeList, struct{}{}, nil, true)
	if err != nil {
		return nil, fmt.Errorf("list home groups: %w", err)
	}

	var ids []string
	if homes, ok := body["data"].([]any); ok {
		for _, h := range homes {
			home, ok := h.(map[string]any)
			if !ok {
				continue
			}
			groups, _ := home["homeGroups"].([]any)
			for _, g := range groups {
				group, ok := g.(map[string]any)
				if !ok {
					continue
				}
				if id := stringValue(group["id"]); id != "" {
					ids = append(ids, id)
				}
			}
		}
	}

	c.groups = ids
	c.groupsAt = c.now()
	return append([]string(nil), ids...), nil
}

// Devices discovers every device across the account's home groups.
// A failing group is logged and skipped; the other groups still return.
func (c *Client) Devices(ctx context.Context) ([]device.Info, error) {
	groupIDs, err := c.Groups(ctx)
	if err != nil {
		return nil, err
	}
	if len(groupIDs) == 0 {
		c.logger.Warn("no home groups found for account")
		return nil, nil
	}

	var infos []device.Info
	for _, groupID := range groupIDs {
		page, err := c.listGroupDevices(ctx, groupID)
		if err != nil {
			c.logger.Error("device list failed for group", "group_id", groupID, "error", err)
			continue
		}
		for _, raw := range page.Data {
			info := device.Info{
				ID:            raw.ID,
				Name:          raw.Name,
				Serial:        raw.Serial,
				Category:      string(raw.Category),
				SchemaVersion: string(raw.Version),
				GroupID:       groupID,
			}
			if len(raw.Props) > 0 {
				info.ResourceCategory = string(raw.Props[0].ResourceCategory)
				info.LocalIndex = string(raw.Props[0].LocalIndex)
			}
			infos = append(infos, info)
		}
	}
	return infos, nil
}

func (c *Client) listGroupDevices(ctx context.Context, groupID string) (*deviceListPage, error) {
	payload := map[string]string{
		"pageSize": strconv.Itoa(c.cfg.PageSize),
		"groupId":  groupID,
		"pageNo":   "1",
	}
	_, raw, err := c.request(ctx, http.MethodPost, pathDeviceList, payload, nil, true)
	if err != nil {
		return nil, err
	}

	var page deviceListPage
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, fmt.Errorf("%w: malformed device list page", ErrProtocol)
	}
	return &page, nil
}

// DigitalModel fetches the capability schema for one device. The list
// endpoint carries a profiles map keyed by product and schema version;
// the device's own domain contributes the attributes. Devices with a
// malformed serial have no schema and yield an empty model.
func (c *Client) DigitalModel(ctx context.Context, info device.Info) ([]attribute.RawAttribute, error) {
	productID := info.ProductID()
	if productID == "" {
		c.logger.Warn("device serial has no product half, skipping schema",
			"device_id", info.ID, "serial", info.Serial)
		return nil, nil
	}

	page, err := c.listGroupDevices(ctx, info.GroupID)
	if err != nil {
		return nil, fmt.Errorf("fetch capability schema for %s: %w", info.ID, err)
	}

	key := fmt.Sprintf("PV(productId=%s, version=%s)", productID, info.SchemaVersion)
	profile, ok := page.Profiles[key]
	if !ok {
		return nil, nil
	}

	var attrs []attribute.RawAttribute
	for _, resource := range profile.Resources {
		for _, domain := range resource.Domains {
			if domain.Identifier == info.Category {
				attrs = append(attrs, domain.Props...)
			}
		}
	}
	return attrs, nil
}

// CachedModel returns the device's capability schema, consulting the model
// cache first. A cache miss or a schema version change hits the cloud and
// replaces the entry wholesale.
func (c *Client) CachedModel(ctx context.Context, cache *ModelCache, info device.Info) ([]attribute.RawAttribute, error) {
	if attrs, ok := cache.Get(info.ID, info.SchemaVersion); ok {
		return attrs, nil
	}
	attrs, err := c.DigitalModel(ctx, info)
	if err != nil {
		return nil, err
	}
	cache.Put(info.ID, info.SchemaVersion, attrs)
	return attrs, nil
}

// Snapshot fetches the device's current capability values. The vendor
// double-encodes the payload: props[0].value is a JSON string holding an
// object keyed by device category. Only keys the model knows survive.
func (c *Client) Snapshot(ctx context.Context, info device.Info, model []attribute.RawAttribute) (map[string]any, error) {
	payload := map[string]string{"id": info.ID}
	body, _, err := c.request(ctx, http.MethodPost, pathDeviceInfo, payload, nil, true)
	if err != nil {
		return nil, fmt.Errorf("snapshot for %s: %w", info.ID, err)
	}

	data, ok := body["data"].(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	props, _ := data["props"].([]any)
	if len(props) == 0 {
		return map[string]any{}, nil
	}
	first, ok := props[0].(map[string]any)
	if !ok {
		return map[string]any{}, nil
	}
	encoded, ok := first["value"].(string)
	if !ok {
		return nil, fmt.Errorf("%w: snapshot value for %s is not a string", ErrProtocol, info.ID)
	}

	var byCategory map[string]map[string]any
	if err := json.Unmarshal([]byte(encoded), &byCategory); err != nil {
		return nil, fmt.Errorf("%w: snapshot value for %s is not valid JSON", ErrProtocol, info.ID)
	}

	values := make(map[string]any)
	categoryValues := byCategory[info.Category]
	for _, attr := range model {
		if v, ok := categoryValues[attr.Identifier]; ok {
			values[attr.Identifier] = v
		}
	}
	return values, nil
}

// InitDevice builds a fully-initialized device: schema via the cache,
// current snapshot, and the capability set parsed against that snapshot.
// Attributes that fail to parse are logged and dropped, never fatal.
func (c *Client) InitDevice(ctx context.Context, cache *ModelCache, info device.Info) (*device.Device, error) {
	model, err := c.CachedModel(ctx, cache, info)
	if err != nil {
		return nil, err
	}
	snapshot, err := c.Snapshot(ctx, info, model)
	if err != nil {
		return nil, err
	}

	var caps []*attribute.Capability
	for _, raw := range model {
		if parsed, ok := attribute.Parse(raw, snapshot); ok {
			caps = append(caps, parsed)
		}
	}
	caps = append(caps, attribute.ParseGlobal(model)...)

	d := device.New(info)
	d.SetCapabilities(caps)
	d.UpdateSnapshot(snapshot)

	c.logger.Debug("device initialized",
		"device_id", info.ID, "name", d.Name, "capabilities", len(caps))
	return d, nil
}

// SendCommand writes one capability value and verifies it took effect by
// reading the capability straight back. A mismatched read-back means the
// device refused or silently dropped the write: ErrCommandRejected, carrying
// the vendor's message.
func (c *Client) SendCommand(ctx context.Context, info device.Info, key string, value any) error {
	extra := deviceHeaders(info, key)

	payload := map[string]any{"value": value}
	if _, _, err := c.request(ctx, http.MethodPut, pathDeviceProp, payload, extra, true); err != nil {
		return fmt.Errorf("write %s on %s: %w", key, info.ID, err)
	}

	body, _, err := c.request(ctx, http.MethodGet, pathDeviceProp, nil, extra, true)
	if err != nil {
		return fmt.Errorf("read back %s on %s: %w", key, info.ID, err)
	}
	if !valueEqual(body["data"], value) {
		return fmt.Errorf("%w: %s on %s: %s", ErrCommandRejected, key, info.ID, envelopeMessage(body))
	}
	return nil
}

// SendHeartbeat reports the device as watched. The cloud stops serving
// fresh values for devices nothing is heartbeating.
func (c *Client) SendHeartbeat(ctx context.Context, info device.Info) error {
	payload := map[string]any{"value": 0}
	extra := deviceHeaders(info, "online_state")
	if _, _, err := c.request(ctx, http.MethodPut, pathDeviceProp, payload, extra, true); err != nil {
		return fmt.Errorf("heartbeat for %s: %w", info.ID, err)
	}
	return nil
}

// deviceHeaders addresses a capability endpoint for writes and heartbeats.
func deviceHeaders(info device.Info, propIdentifier string) map[string]string {
	return map[string]string{
		"domainidentifier": info.Category,
		"propidentifier":   propIdentifier,
		"localindex":       info.LocalIndex,
		"deviceserial":     info.Serial,
		"resourcecategory": info.ResourceCategory,
	}
}

// valueEqual compares a read-back value with the commanded one. JSON
// decoding turns all numbers into float64, so numeric values compare
// numerically regardless of the Go type the caller used.
func valueEqual(got, want any) bool {
	gf, gok := attribute.ToFloat64(got)
	wf, wok := attribute.ToFloat64(want)
	if gok && wok {
		return gf == wf
	}
	return reflect.DeepEqual(got, want)
}

func stringValue(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case float64:
		return strconv.FormatFloat(s, 'f', -1, 64)
	default:
		return ""
	}
}
