/*

Package objstore is a local stand-in for the Cloud Storage JSON API, enough of it to exercise the storage requests
of this module without a network connection or credentials.

Supported endpoints

	POST   /storage/v1/b                                  create a bucket, body {"name": "..."}
	GET    /storage/v1/b                                  list buckets
	POST   /upload/storage/v1/b/{bucket}/o?uploadType=media&name=...
	GET    /storage/v1/b/{bucket}/o                       list objects
	GET    /storage/v1/b/{bucket}/o/{object}              metadata, or the bytes with alt=media
	DELETE /storage/v1/b/{bucket}/o/{object}

Limitations

Buckets live in memory and disappear with the process. Only the latest generation of an object is retained, so
versions=true listings return the same items as a plain listing. Metageneration is always 1.

Authorization headers are accepted and ignored. Only media uploads are understood; multipart and resumable uploads
are rejected with 400.

Errors are returned in the JSON API shape, {"error": {"code": 404, "message": "..."}}, so that the client sees the
same failures it would see against the real service.

*/
package objstore
