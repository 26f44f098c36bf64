package models

import (
	"encoding/json"
	"fmt"
	"sort"
)

// CatalogDocument is the single composite aggregate held by the remote store.
// Every collection is always present; the remote store only accepts whole-document writes.
type CatalogDocument struct {
	Users            map[string]*User             `json:"users"`
	Modules          map[string]*Module           `json:"modules"`
	Packages         map[string]*Package          `json:"packages"`
	Purchases        map[string]*Purchase         `json:"purchases"`
	Categories       map[string]*Category         `json:"categories"`
	Comments         map[string]json.RawMessage   `json:"comments"`
	Subscriptions    map[string]json.RawMessage   `json:"subscriptions"`
	Notifications    map[string]json.RawMessage   `json:"notifications"`
	ScheduledContent map[string]json.RawMessage   `json:"scheduledContent"`
	ContentBundles   map[string]*Bundle           `json:"contentBundles"`
	UploadQueue      map[string]*UploadQueueEntry `json:"uploadQueue"`
	Settings         map[string]json.RawMessage   `json:"settings"`
}

// NewCatalogDocument returns a document with every collection empty
func NewCatalogDocument() *CatalogDocument {
	d := &CatalogDocument{}
	d.normalize()
	return d
}

func (d *CatalogDocument) UnmarshalJSON(data []byte) error {
	type plain CatalogDocument
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*d = CatalogDocument(p)
	d.normalize()
	return nil
}

func (d *CatalogDocument) normalize() {
	if d.Users == nil {
		d.Users = map[string]*User{}
	}
	if d.Modules == nil {
		d.Modules = map[string]*Module{}
	}
	if d.Packages == nil {
		d.Packages = map[string]*Package{}
	}
	if d.Purchases == nil {
		d.Purchases = map[string]*Purchase{}
	}
	if d.Categories == nil {
		d.Categories = map[string]*Category{}
	}
	if d.Comments == nil {
		d.Comments = map[string]json.RawMessage{}
	}
	if d.Subscriptions == nil {
		d.Subscriptions = map[string]json.RawMessage{}
	}
	if d.Notifications == nil {
		d.Notifications = map[string]json.RawMessage{}
	}
	if d.ScheduledContent == nil {
		d.ScheduledContent = map[string]json.RawMessage{}
	}
	if d.ContentBundles == nil {
		d.ContentBundles = map[string]*Bundle{}
	}
	if d.UploadQueue == nil {
		d.UploadQueue = map[string]*UploadQueueEntry{}
	}
	if d.Settings == nil {
		d.Settings = map[string]json.RawMessage{}
	}
	dropNil(d.Users)
	dropNil(d.Modules)
	dropNil(d.Packages)
	dropNil(d.Purchases)
	dropNil(d.Categories)
	dropNil(d.ContentBundles)
	dropNil(d.UploadQueue)
}

// null entries carry no entity and would break identifier checks
func dropNil[T any](m map[string]*T) {
	for k, v := range m {
		if v == nil {
			delete(m, k)
		}
	}
}

// Clone returns a deep copy of the document
func (d *CatalogDocument) Clone() (*CatalogDocument, error) {
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal document: %w", err)
	}
	var out CatalogDocument
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal document: %w", err)
	}
	return &out, nil
}

// Validate checks that every entity is stored under its own identifier
func (d *CatalogDocument) Validate() error {
	check := func(collection, key, id string) error {
		if key != id {
			return fmt.Errorf("%s: entry %q has id %q", collection, key, id)
		}
		return nil
	}
	for k, v := range d.Users {
		if err := check("users", k, v.ID); err != nil {
			return err
		}
	}
	for k, v := range d.Modules {
		if err := check("modules", k, v.ID); err != nil {
			return err
		}
	}
	for k, v := range d.Packages {
		if err := check("packages", k, v.ID); err != nil {
			return err
		}
	}
	for k, v := range d.Purchases {
		if err := check("purchases", k, v.ID); err != nil {
			return err
		}
	}
	for k, v := range d.Categories {
		if err := check("categories", k, v.ID); err != nil {
			return err
		}
	}
	for k, v := range d.ContentBundles {
		if err := check("contentBundles", k, v.ID); err != nil {
			return err
		}
	}
	for k, v := range d.UploadQueue {
		if err := check("uploadQueue", k, v.ID); err != nil {
			return err
		}
	}
	return nil
}

// MediaCarriers returns every media-bearing entity keyed by "collection/id"
func (d *CatalogDocument) MediaCarriers() map[string]MediaCarrier {
	out := make(map[string]MediaCarrier)
	for id, m := range d.Modules {
		out["modules/"+id] = m
	}
	for id, p := range d.Packages {
		out["packages/"+id] = p
	}
	for id, b := range d.ContentBundles {
		out["contentBundles/"+id] = b
	}
	for id, u := range d.UploadQueue {
		out["uploadQueue/"+id] = u
	}
	return out
}

// TransientRefs lists fields that still hold blob handles or upload references, as "collection/id.field"
func (d *CatalogDocument) TransientRefs() []string {
	var refs []string
	for key, carrier := range d.MediaCarriers() {
		for _, f := range carrier.MediaFields() {
			if !ParseMediaAsset(*f.Value).IsDurable() {
				refs = append(refs, key+"."+f.Name)
			}
		}
	}
	sort.Strings(refs)
	return refs
}

// ModulesInCategory returns IDs of modules assigned to categoryID, sorted
func (d *CatalogDocument) ModulesInCategory(categoryID string) []string {
	var ids []string
	for id, m := range d.Modules {
		if m.Category == categoryID {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}
