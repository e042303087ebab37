// Package inventory speaks the v1alpha.PublicAPI ListImages protocol of the
// image inventory backend.
//
// The schema is described in code and messages are handled with dynamicpb,
// so no generated stubs are needed. Client is used by the call pipeline,
// Register and Store back the development server and the tests.
package inventory
