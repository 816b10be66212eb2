/*
Copyright © 2025 Mulga Defense Corporation

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

// Command start is the Lambda function that starts the instance named by
// INSTANCE_ID.
package main

import (
	"log/slog"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	"github.com/mulgadc/ec2power/ec2power/backend"
)

func main() {
	h, closeFn, err := backend.Bootstrap(os.Getenv(backend.ConfigPathEnv))
	if err != nil {
		slog.Error("start: failed to initialise handler", "err", err)
		os.Exit(1)
	}
	defer closeFn()

	lambda.Start(h.HandleStart)
}
