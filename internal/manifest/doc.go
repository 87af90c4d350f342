// Package manifest loads the list of frames a host serves from YAML or
// TOML. Origins are validated with the same rules peers apply and stored
// in serialized form.
//
//	containers: [main]
//	frames:
//	  - id: app
//	    container: main
//	    origin: http://localhost:3000
//	    classes: [full-height]
//	    script: effects/app.js
package manifest
