// Command inventoryd is a development stand-in for the image inventory
// backend. It serves v1alpha.PublicAPI/ListImages from memory, seeded with
// generated images or from a YAML file:
//
//	- id: sha512-0a1b
//	  name: example.com/app/redis
//	  version: "7.2"
//
// SIGHUP reloads the seed file.
package main
