// Package davxml builds the PROPFIND request bodies sent by the probes and
// reads the multistatus documents that come back.
package davxml

import (
	"fmt"

	"github.com/beevik/etree"
)

const NamespaceDAV = "DAV:"

var (
	// PrincipalCollectionSet asks for principal-collection-set on the DAV root.
	PrincipalCollectionSet = PropfindBody("principal-collection-set")
	// CollectionProps asks for displayname and resourcetype of a home collection.
	CollectionProps = PropfindBody("displayname", "resourcetype")
)

// PropfindBody renders a <D:propfind> document requesting the given DAV: properties.
func PropfindBody(props ...string) []byte {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="utf-8"`)
	root := doc.CreateElement("D:propfind")
	root.CreateAttr("xmlns:D", NamespaceDAV)
	prop := root.CreateElement("D:prop")
	for _, p := range props {
		prop.CreateElement("D:" + p)
	}
	b, err := doc.WriteToBytes()
	if err != nil {
		// only fails on writer errors, which a bytes.Buffer never returns
		panic(err)
	}
	return b
}

// Resource is one <response> of a multistatus body.
type Resource struct {
	Href        string
	DisplayName string
	Types       []string // local names inside resourcetype, e.g. "collection", "calendar"
}

func (r Resource) IsCollection() bool {
	for _, t := range r.Types {
		if t == "collection" {
			return true
		}
	}
	return false
}

// ParseMultistatus extracts the responses of a multistatus body. Only
// properties inside a propstat with a 200 status are read.
func ParseMultistatus(body []byte) ([]Resource, error) {
	doc := etree.NewDocument()
	if err := doc.ReadFromBytes(body); err != nil {
		return nil, fmt.Errorf("parse multistatus: %w", err)
	}
	root := doc.Root()
	if root == nil {
		return nil, fmt.Errorf("parse multistatus: empty document")
	}
	if root.Tag != "multistatus" {
		return nil, fmt.Errorf("parse multistatus: invalid root tag: %s", root.Tag)
	}

	var out []Resource
	for _, respElem := range root.SelectElements("response") {
		var r Resource
		if href := respElem.SelectElement("href"); href != nil {
			r.Href = href.Text()
		}
		for _, ps := range respElem.SelectElements("propstat") {
			if st := ps.SelectElement("status"); st != nil && !okStatus(st.Text()) {
				continue
			}
			prop := ps.SelectElement("prop")
			if prop == nil {
				continue
			}
			if dn := prop.SelectElement("displayname"); dn != nil {
				r.DisplayName = dn.Text()
			}
			if rt := prop.SelectElement("resourcetype"); rt != nil {
				for _, c := range rt.ChildElements() {
					r.Types = append(r.Types, c.Tag)
				}
			}
		}
		out = append(out, r)
	}
	return out, nil
}

// okStatus reports whether a DAV status line ("HTTP/1.1 200 OK") is a 2xx.
func okStatus(line string) bool {
	var proto string
	var code int
	if _, err := fmt.Sscanf(line, "%s %d", &proto, &code); err != nil {
		return false
	}
	return code >= 200 && code < 300
}
